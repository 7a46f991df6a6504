package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/red-council/chainscope/internal/model"
)

func TestRecordAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	events := []model.AgentEvent{
		{ID: "1", EventType: model.EventToolCall, ToolName: "exec", Success: true},
		{ID: "2", EventType: model.EventSpeech},
	}
	if err := log.RecordBatch(events); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	loaded, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(loaded))
	}
	if loaded[0].ToolName != "exec" || loaded[1].EventType != model.EventSpeech {
		t.Errorf("unexpected events: %+v", loaded)
	}
}

func TestOpenAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Record(model.AgentEvent{ID: "1", EventType: model.EventAction}); err != nil {
		t.Fatalf("record: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := second.Record(model.AgentEvent{ID: "2", EventType: model.EventAction}); err != nil {
		t.Fatalf("record: %v", err)
	}
	second.Close()

	loaded, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected append across opens, got %d events", len(loaded))
	}
}

func TestReadAllSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	content := `{"id":"1","event_type":"action"}` + "\n\n" + `{"id":"2","event_type":"speech"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected blank lines skipped, got %d events", len(loaded))
	}
}

func TestReadAllReportsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	content := `{"id":"1","event_type":"action"}` + "\n" + `{broken` + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ReadAll(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestReadAllMissingFile(t *testing.T) {
	if _, err := ReadAll(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

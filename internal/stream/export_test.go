package stream

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/red-council/chainscope/internal/model"
)

func TestExportDocumentShape(t *testing.T) {
	f := &fakeFetcher{responses: []fakeResponse{{events: []model.AgentEvent{
		{ID: "1", EventType: model.EventToolCall, ToolName: "exec"},
		{ID: "2", EventType: model.EventSpeech},
	}}}}
	a := newTestAccumulator(t, f)
	a.poll(context.Background())

	// Filters must not affect the export: it wraps the full buffer.
	a.SetFilters([]string{string(model.EventToolCall)})

	res, err := a.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc struct {
		Metadata ExportMetadata    `json:"metadata"`
		Events   []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(res.JSON, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Metadata.SessionID != "sess-1" {
		t.Errorf("expected session id in metadata, got %q", doc.Metadata.SessionID)
	}
	if doc.Metadata.SchemaVersion != ExportSchemaVersion {
		t.Errorf("expected schema version %q, got %q", ExportSchemaVersion, doc.Metadata.SchemaVersion)
	}
	if doc.Metadata.EventCount != 2 || len(doc.Events) != 2 {
		t.Errorf("expected full buffer exported, got count=%d events=%d", doc.Metadata.EventCount, len(doc.Events))
	}
	if doc.Metadata.ExportedAt == "" {
		t.Error("expected exported_at timestamp")
	}
}

func TestExportSizeBytes(t *testing.T) {
	a := NewStatic("demo", []model.AgentEvent{{ID: "1", EventType: model.EventAction}})

	res, err := a.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.SizeBytes != len(res.JSON) {
		t.Errorf("size %d does not match payload length %d", res.SizeBytes, len(res.JSON))
	}
	if res.ExceedsLimit {
		t.Error("tiny export must not exceed the limit")
	}
}

func TestExportExceedsLimit(t *testing.T) {
	// ~60 events x ~200KB of payload comfortably clears 10 MiB.
	big := strings.Repeat("x", 200*1024)
	events := make([]model.AgentEvent, 60)
	for i := range events {
		events[i] = model.AgentEvent{
			ID:        "big",
			EventType: model.EventAction,
			Arguments: map[string]any{"blob": big},
		}
	}
	a := NewStatic("demo", events)

	res, err := a.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.SizeBytes <= MaxExportSize {
		t.Fatalf("test payload too small: %d bytes", res.SizeBytes)
	}
	if !res.ExceedsLimit {
		t.Error("expected exceeds-limit flag for oversized export")
	}
}

func TestExportEmptyBuffer(t *testing.T) {
	a := NewStatic("demo", nil)

	res, err := a.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(res.JSON), `"events":[]`) {
		t.Errorf("expected empty events array, got %s", res.JSON)
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/red-council/chainscope/internal/capture"
	"github.com/red-council/chainscope/internal/client"
	"github.com/red-council/chainscope/internal/model"
)

func writeCapture(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	log, err := capture.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	for i := 0; i < n; i++ {
		if err := log.Record(model.AgentEvent{
			ID:        string(rune('a' + i%26)),
			EventType: model.EventToolCall,
			ToolName:  "exec",
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	log.Close()
	return path
}

func TestServeEventsPaginated(t *testing.T) {
	s := New(nil)
	if err := s.LoadCapture("sess-1", writeCapture(t, 10)); err != nil {
		t.Fatalf("load: %v", err)
	}

	srv := httptest.NewServer(s)
	defer srv.Close()

	c, err := client.New(client.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	events, total, err := c.FetchEvents(context.Background(), "sess-1", 0, 4)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 4 || total != 10 {
		t.Errorf("expected 4 of 10 events, got %d of %d", len(events), total)
	}

	events, _, err = c.FetchEvents(context.Background(), "sess-1", 8, 4)
	if err != nil {
		t.Fatalf("fetch tail: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 tail events, got %d", len(events))
	}

	events, _, err = c.FetchEvents(context.Background(), "sess-1", 100, 4)
	if err != nil {
		t.Fatalf("fetch past end: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty page past end, got %d", len(events))
	}
}

func TestServeUnknownSession(t *testing.T) {
	s := New(nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	c, _ := client.New(client.Config{BaseURL: srv.URL})
	_, _, err := c.FetchEvents(context.Background(), "absent", 0, 10)
	if err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestEnvelopeShape(t *testing.T) {
	s := New(nil)
	if err := s.LoadCapture("sess-1", writeCapture(t, 1)); err != nil {
		t.Fatalf("load: %v", err)
	}

	req := httptest.NewRequest("GET", "/agent/session/sess-1/events?offset=0&limit=10", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["events"]; !ok {
		t.Error("expected events key in envelope")
	}
	if _, ok := body["total_count"]; !ok {
		t.Error("expected total_count key in envelope")
	}
}

func TestReloadPicksUpAppendedEvents(t *testing.T) {
	path := writeCapture(t, 2)
	s := New(nil)
	if err := s.LoadCapture("sess-1", path); err != nil {
		t.Fatalf("load: %v", err)
	}

	log, err := capture.Open(path)
	if err != nil {
		t.Fatalf("reopen capture: %v", err)
	}
	if err := log.Record(model.AgentEvent{ID: "new", EventType: model.EventAction}); err != nil {
		t.Fatalf("append: %v", err)
	}
	log.Close()

	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	srv := httptest.NewServer(s)
	defer srv.Close()
	c, _ := client.New(client.Config{BaseURL: srv.URL})
	_, total, err := c.FetchEvents(context.Background(), "sess-1", 0, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 events after reload, got %d", total)
	}
}

func TestReloadKeepsEventsWhenSourceVanishes(t *testing.T) {
	path := writeCapture(t, 2)
	s := New(nil)
	if err := s.LoadCapture("sess-1", path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Reload(); err == nil {
		t.Error("expected reload error for missing source")
	}

	req := httptest.NewRequest("GET", "/agent/session/sess-1/events", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var body struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalCount != 2 {
		t.Errorf("expected previous events kept, got %d", body.TotalCount)
	}
}

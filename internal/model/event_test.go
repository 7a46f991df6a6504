package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// --- AgentEvent round-trip tests ---

func TestUnmarshalRetainsUnknownFields(t *testing.T) {
	in := `{"id":"e1","event_type":"divergence","timestamp":"2026-01-02T03:04:05Z","severity":"high","score":0.93}`

	var ev AgentEvent
	if err := json.Unmarshal([]byte(in), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != EventDivergence {
		t.Errorf("expected event_type divergence, got %q", ev.EventType)
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"severity":"high"`) {
		t.Errorf("expected unknown field to survive round-trip, got %s", out)
	}
}

func TestMarshalWithoutRawForm(t *testing.T) {
	ev := AgentEvent{ID: "e1", EventType: EventToolCall, ToolName: "search"}
	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"tool_name":"search"`) {
		t.Errorf("expected typed fields in output, got %s", out)
	}
}

// --- ToolCalls tests ---

func TestToolCallsFiltersNonToolEvents(t *testing.T) {
	events := []AgentEvent{
		{ID: "1", EventType: EventToolCall, ToolName: "read_file", Success: true},
		{ID: "2", EventType: EventSpeech},
		{ID: "3", EventType: EventToolCall, ToolName: "exec", Success: false, ExceptionType: "Timeout"},
		{ID: "4", EventType: EventToolCall}, // missing tool name
	}

	calls := ToolCalls(events)
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ToolName != "read_file" || calls[1].ToolName != "exec" {
		t.Errorf("unexpected order: %v", calls)
	}
	if calls[1].ExceptionType != "Timeout" {
		t.Errorf("expected exception type preserved, got %q", calls[1].ExceptionType)
	}
}

// --- ParseTimestamp tests ---

func TestParseTimestampFormats(t *testing.T) {
	valid := []string{
		"2026-01-02T03:04:05Z",
		"2026-01-02T03:04:05.123456Z",
		"2026-01-02T03:04:05+02:00",
		"2026-01-02T03:04:05",
	}
	for _, s := range valid {
		if _, ok := ParseTimestamp(s); !ok {
			t.Errorf("expected %q to parse", s)
		}
	}

	invalid := []string{"", "not-a-time", "2026-13-99T99:99:99Z", "1754000000"}
	for _, s := range invalid {
		if _, ok := ParseTimestamp(s); ok {
			t.Errorf("expected %q to fail parsing", s)
		}
	}
}

// Package model defines the event records produced by agent instrumentation
// and consumed by the stream accumulator and chain analyzer. Payload fields
// (arguments, result) are opaque here; structural validation happens at the
// ingestion boundary, never inside the analyzer.
package model

import (
	"encoding/json"
	"time"
)

// EventType discriminates instrumentation events.
type EventType string

const (
	EventToolCall     EventType = "tool_call"
	EventMemoryAccess EventType = "memory_access"
	EventAction       EventType = "action"
	EventSpeech       EventType = "speech"
	EventDivergence   EventType = "divergence"
)

// AgentEvent is one record from the instrumentation stream. Only tool_call
// events carry the tool fields; other variants pass through untyped via the
// retained raw form.
type AgentEvent struct {
	ID            string         `json:"id"`
	EventType     EventType      `json:"event_type"`
	Timestamp     string         `json:"timestamp"`
	ToolName      string         `json:"tool_name,omitempty"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	Result        any            `json:"result,omitempty"`
	DurationMs    float64        `json:"duration_ms,omitempty"`
	Success       bool           `json:"success,omitempty"`
	ExceptionType string         `json:"exception_type,omitempty"`

	// raw preserves the original wire form so unknown variants and extra
	// fields survive re-serialization (capture logs, exports).
	raw json.RawMessage
}

// UnmarshalJSON decodes the typed fields and retains the raw object.
func (e *AgentEvent) UnmarshalJSON(data []byte) error {
	type plain AgentEvent
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = AgentEvent(p)
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the original wire form when available, so events round-trip
// without losing fields this package does not model.
func (e AgentEvent) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	type plain AgentEvent
	return json.Marshal(plain(e))
}

// ToolCallEvent is the analyzer's view of a single recorded tool invocation.
type ToolCallEvent struct {
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	Result        any            `json:"result,omitempty"`
	DurationMs    float64        `json:"duration_ms"`
	Success       bool           `json:"success"`
	ExceptionType string         `json:"exception_type,omitempty"`
}

// ToolCalls extracts the tool_call events from a mixed event sequence,
// preserving order. Events without a tool name are skipped.
func ToolCalls(events []AgentEvent) []ToolCallEvent {
	var calls []ToolCallEvent
	for _, ev := range events {
		if ev.EventType != EventToolCall || ev.ToolName == "" {
			continue
		}
		calls = append(calls, ToolCallEvent{
			ID:            ev.ID,
			Timestamp:     ev.Timestamp,
			ToolName:      ev.ToolName,
			Arguments:     ev.Arguments,
			Result:        ev.Result,
			DurationMs:    ev.DurationMs,
			Success:       ev.Success,
			ExceptionType: ev.ExceptionType,
		})
	}
	return calls
}

// ParseTimestamp parses an ISO-8601 timestamp. Malformed timestamps are
// expected in the wild; callers treat a false return as "no ordering
// information" rather than an error.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

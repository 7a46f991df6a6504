package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/red-council/chainscope/internal/model"
)

const (
	// MaxExportSize is the advisory serialized-size limit (10 MiB). Exceeding
	// it is a warning for the caller, never a failure.
	MaxExportSize = 10 * 1024 * 1024

	// ExportSchemaVersion identifies the export document format.
	ExportSchemaVersion = "1.0"
)

// ExportMetadata describes one export document.
type ExportMetadata struct {
	ExportedAt    string `json:"exported_at"`
	SessionID     string `json:"session_id"`
	EventCount    int    `json:"event_count"`
	SchemaVersion string `json:"schema_version"`
}

type exportDocument struct {
	Metadata ExportMetadata     `json:"metadata"`
	Events   []model.AgentEvent `json:"events"`
}

// ExportResult carries the serialized export plus size information so the
// caller can warn before triggering a large download.
type ExportResult struct {
	JSON         []byte
	SizeBytes    int
	ExceedsLimit bool
	Metadata     ExportMetadata
}

// Export serializes the full current buffer (not the filtered view) with
// metadata.
func (a *Accumulator) Export() (*ExportResult, error) {
	a.mu.Lock()
	events := make([]model.AgentEvent, len(a.events))
	copy(events, a.events)
	sessionID := a.sessionID
	now := a.now()
	a.mu.Unlock()

	meta := ExportMetadata{
		ExportedAt:    now.UTC().Format(time.RFC3339),
		SessionID:     sessionID,
		EventCount:    len(events),
		SchemaVersion: ExportSchemaVersion,
	}

	data, err := json.Marshal(exportDocument{Metadata: meta, Events: events})
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	return &ExportResult{
		JSON:         data,
		SizeBytes:    len(data),
		ExceedsLimit: len(data) > MaxExportSize,
		Metadata:     meta,
	}, nil
}

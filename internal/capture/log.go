// Package capture persists a session's event stream as an append-only JSONL
// file. Captures feed offline analysis and the replay server.
package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/red-council/chainscope/internal/model"
)

// Log is an append-only JSONL event capture, one event per line.
type Log struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens (or creates) a capture file for appending.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("capture: create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("capture: open file: %w", err)
	}

	return &Log{path: path, file: file}, nil
}

// Record appends one event as a JSON line.
func (l *Log) Record(ev model.AgentEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("capture: marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("capture: write event: %w", err)
	}
	return nil
}

// RecordBatch appends a batch of events, stopping at the first failure.
func (l *Log) RecordBatch(events []model.AgentEvent) error {
	for _, ev := range events {
		if err := l.Record(ev); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the capture file path.
func (l *Log) Path() string {
	return l.path
}

// Close syncs and closes the capture file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("capture: sync: %w", err)
	}
	return l.file.Close()
}

// ReadAll loads every event from a capture file. Blank lines are skipped;
// a malformed line fails with its line number so a truncated capture is
// diagnosable.
func ReadAll(path string) ([]model.AgentEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var events []model.AgentEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev model.AgentEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("capture: line %d: %w", lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("capture: scan %s: %w", path, err)
	}
	return events, nil
}

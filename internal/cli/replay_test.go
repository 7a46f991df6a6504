package cli

import "testing"

func TestSplitMapping(t *testing.T) {
	tests := []struct {
		in       string
		id, path string
		ok       bool
	}{
		{"demo=capture.jsonl", "demo", "capture.jsonl", true},
		{"s1=/tmp/a=b.jsonl", "s1", "/tmp/a=b.jsonl", true},
		{"nodelimiter", "", "", false},
		{"=path.jsonl", "", "", false},
		{"id=", "", "", false},
	}
	for _, tt := range tests {
		id, path, ok := splitMapping(tt.in)
		if ok != tt.ok {
			t.Errorf("splitMapping(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (id != tt.id || path != tt.path) {
			t.Errorf("splitMapping(%q) = (%q, %q), want (%q, %q)", tt.in, id, path, tt.id, tt.path)
		}
	}
}

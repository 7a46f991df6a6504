// Package analyzer derives per-tool statistics, a transition graph, and
// ASI01 violation flags from a recorded tool-call sequence. Analysis is a
// pure function of the input: nothing is cached or mutated incrementally,
// every call produces a fresh snapshot.
package analyzer

import (
	"sort"
	"time"

	"github.com/red-council/chainscope/internal/model"
)

const (
	// LoopThreshold is the consecutive-run length above which a tool is
	// flagged as looping. Exclusive: a run of exactly 3 is not a loop.
	LoopThreshold = 3

	// ExcessiveCallsThreshold is the total call count above which a tool is
	// flagged as excessive. Exclusive: exactly 10 calls is not excessive.
	ExcessiveCallsThreshold = 10
)

// ToolNode aggregates all calls to one tool.
type ToolNode struct {
	Name             string  `json:"name"`
	CallCount        int     `json:"call_count"`
	SuccessCount     int     `json:"success_count"`
	ErrorCount       int     `json:"error_count"`
	TotalDurationMs  float64 `json:"total_duration_ms"`
	IsLoop           bool    `json:"is_loop"`
	IsExcessive      bool    `json:"is_excessive"`
	IsASI01Violation bool    `json:"is_asi01_violation"`
}

// ToolEdge is one observed transition between consecutive tool calls.
// Self-edges (source == target) represent consecutive repeated calls.
type ToolEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// ChainAnalysis is the complete output of one analysis run.
type ChainAnalysis struct {
	Nodes           map[string]*ToolNode `json:"nodes"`
	Edges           []ToolEdge           `json:"edges"`
	LoopsDetected   []string             `json:"loops_detected"`
	ExcessiveTools  []string             `json:"excessive_tools"`
	ASI01Violations []string             `json:"asi01_violations"`
	TotalCalls      int                  `json:"total_calls"`
	UniqueTools     int                  `json:"unique_tools"`
	ErrorRate       float64              `json:"error_rate"`
}

// Analyze builds a ChainAnalysis from a tool-call sequence. Deterministic for
// a given input order; tolerates malformed timestamps (events whose timestamps
// fail to parse keep their relative input order).
func Analyze(calls []model.ToolCallEvent) *ChainAnalysis {
	out := &ChainAnalysis{
		Nodes:           make(map[string]*ToolNode),
		Edges:           []ToolEdge{},
		LoopsDetected:   []string{},
		ExcessiveTools:  []string{},
		ASI01Violations: []string{},
	}
	if len(calls) == 0 {
		return out
	}

	sorted := sortChronological(calls)

	// Per-tool aggregation, tracking first-seen order so the excessive list
	// comes out deterministic.
	var seenOrder []string
	errorTotal := 0
	for _, c := range sorted {
		node := out.Nodes[c.ToolName]
		if node == nil {
			node = &ToolNode{Name: c.ToolName}
			out.Nodes[c.ToolName] = node
			seenOrder = append(seenOrder, c.ToolName)
		}
		node.CallCount++
		if c.Success {
			node.SuccessCount++
		} else {
			node.ErrorCount++
			errorTotal++
		}
		node.TotalDurationMs += c.DurationMs
	}

	// Loop detection: a tool is flagged the first time a consecutive run
	// strictly exceeds LoopThreshold, and never again — a tool that loops,
	// stops, and loops again later still appears once.
	loopFlagged := make(map[string]bool)
	runTool := ""
	runLen := 0
	for _, c := range sorted {
		if c.ToolName == runTool {
			runLen++
		} else {
			runTool = c.ToolName
			runLen = 1
		}
		if runLen > LoopThreshold && !loopFlagged[runTool] {
			loopFlagged[runTool] = true
			out.LoopsDetected = append(out.LoopsDetected, runTool)
			node := out.Nodes[runTool]
			node.IsLoop = true
			node.IsASI01Violation = true
		}
	}

	// Excessive-call detection over totals, independent of consecutiveness.
	for _, name := range seenOrder {
		node := out.Nodes[name]
		if node.CallCount > ExcessiveCallsThreshold {
			node.IsExcessive = true
			node.IsASI01Violation = true
			out.ExcessiveTools = append(out.ExcessiveTools, name)
		}
	}

	// Violations: loop-detected names first in detection order, then any
	// excessive-only names, no duplicates.
	out.ASI01Violations = append(out.ASI01Violations, out.LoopsDetected...)
	for _, name := range out.ExcessiveTools {
		if !loopFlagged[name] {
			out.ASI01Violations = append(out.ASI01Violations, name)
		}
	}

	// Transition graph over adjacent pairs, emitted in first-occurrence order.
	type edgeKey struct{ source, target string }
	edgeCounts := make(map[edgeKey]int)
	var edgeOrder []edgeKey
	for i := 0; i+1 < len(sorted); i++ {
		key := edgeKey{sorted[i].ToolName, sorted[i+1].ToolName}
		if edgeCounts[key] == 0 {
			edgeOrder = append(edgeOrder, key)
		}
		edgeCounts[key]++
	}
	for _, key := range edgeOrder {
		out.Edges = append(out.Edges, ToolEdge{Source: key.source, Target: key.target, Count: edgeCounts[key]})
	}

	out.TotalCalls = len(sorted)
	out.UniqueTools = len(out.Nodes)
	out.ErrorRate = float64(errorTotal) / float64(len(sorted))
	return out
}

// sortChronological returns a copy of calls in ascending timestamp order.
// The sort is stable, and any pair involving an unparseable timestamp
// compares as equal, so such events never reorder relative to each other.
func sortChronological(calls []model.ToolCallEvent) []model.ToolCallEvent {
	type keyed struct {
		call  model.ToolCallEvent
		at    time.Time
		valid bool
	}
	items := make([]keyed, len(calls))
	for i, c := range calls {
		at, ok := model.ParseTimestamp(c.Timestamp)
		items[i] = keyed{call: c, at: at, valid: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].valid || !items[j].valid {
			return false
		}
		return items[i].at.Before(items[j].at)
	})
	sorted := make([]model.ToolCallEvent, len(items))
	for i, it := range items {
		sorted[i] = it.call
	}
	return sorted
}

// Package report renders a chain analysis as a markdown assessment report,
// with optional HTML output for sharing outside the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/red-council/chainscope/internal/analyzer"
)

// Markdown renders the analysis as a markdown document.
func Markdown(a *analyzer.ChainAnalysis, sessionID string, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tool Chain Assessment — %s\n\n", sessionID)
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total calls: %d\n", a.TotalCalls)
	fmt.Fprintf(&b, "- Unique tools: %d\n", a.UniqueTools)
	fmt.Fprintf(&b, "- Error rate: %.1f%%\n", a.ErrorRate*100)
	fmt.Fprintf(&b, "- ASI01 violations: %d\n\n", len(a.ASI01Violations))

	if len(a.ASI01Violations) > 0 {
		b.WriteString("## Violations (ASI01)\n\n")
		for _, name := range a.ASI01Violations {
			node := a.Nodes[name]
			var reasons []string
			if node.IsLoop {
				reasons = append(reasons, fmt.Sprintf("loop pattern (%d+ consecutive calls)", analyzer.LoopThreshold+1))
			}
			if node.IsExcessive {
				reasons = append(reasons, fmt.Sprintf("excessive calls (%d total)", node.CallCount))
			}
			fmt.Fprintf(&b, "- **%s** — %s\n", name, strings.Join(reasons, "; "))
		}
		b.WriteString("\n")
	}

	if len(a.Nodes) > 0 {
		b.WriteString("## Per-tool statistics\n\n")
		b.WriteString("| Tool | Calls | Errors | Total duration (ms) | Flags |\n")
		b.WriteString("|------|------:|-------:|--------------------:|-------|\n")
		for _, name := range sortedToolNames(a) {
			node := a.Nodes[name]
			var flags []string
			if node.IsLoop {
				flags = append(flags, "loop")
			}
			if node.IsExcessive {
				flags = append(flags, "excessive")
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %.0f | %s |\n",
				name, node.CallCount, node.ErrorCount, node.TotalDurationMs, strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}

	if len(a.Edges) > 0 {
		b.WriteString("## Transitions\n\n")
		for _, edge := range a.Edges {
			fmt.Fprintf(&b, "- %s → %s (%d)\n", edge.Source, edge.Target, edge.Count)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// sortedToolNames orders tools by call count descending, then name, so the
// busiest tools lead the table.
func sortedToolNames(a *analyzer.ChainAnalysis) []string {
	names := make([]string, 0, len(a.Nodes))
	for name := range a.Nodes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni, nj := a.Nodes[names[i]], a.Nodes[names[j]]
		if ni.CallCount != nj.CallCount {
			return ni.CallCount > nj.CallCount
		}
		return names[i] < names[j]
	})
	return names
}

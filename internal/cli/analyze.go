package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/red-council/chainscope/internal/analyzer"
	"github.com/red-council/chainscope/internal/capture"
	"github.com/red-council/chainscope/internal/client"
	"github.com/red-council/chainscope/internal/model"
	"github.com/red-council/chainscope/internal/report"
	"github.com/red-council/chainscope/internal/stream"
)

var (
	analyzeFile string
	analyzeJSON bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Analyze a JSONL capture file instead of fetching")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the raw analysis as JSON")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [session-id]",
	Short: "Analyze a session's tool-call chain",
	Long:  "Builds the per-tool statistics and transition graph for a session,\nflagging loop patterns and excessive call counts as ASI01 violations.\nReads a capture file with --file, or fetches the session's event log.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var (
		events []model.AgentEvent
		label  string
		err    error
	)

	switch {
	case analyzeFile != "":
		events, err = capture.ReadAll(analyzeFile)
		if err != nil {
			return err
		}
		label = analyzeFile
	case len(args) == 1:
		events, err = fetchAllEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		label = args[0]
	default:
		return errors.New("a session id or --file is required")
	}

	a := analyzer.Analyze(model.ToolCalls(events))

	if analyzeJSON {
		out, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(report.Markdown(a, label, time.Now()))
	return nil
}

// fetchAllEvents pages through a session's event log, bounded by the stream
// buffer cap.
func fetchAllEvents(ctx context.Context, sessionID string) ([]model.AgentEvent, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.New(client.Config{BaseURL: cfg.API.BaseURL, Token: cfg.API.Token})
	if err != nil {
		return nil, err
	}

	var all []model.AgentEvent
	offset := 0
	for len(all) < stream.MaxEvents {
		page, _, err := c.FetchEvents(ctx, sessionID, offset, cfg.Stream.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) < cfg.Stream.PageSize {
			break
		}
	}
	return all, nil
}

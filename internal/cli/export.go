package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/red-council/chainscope/internal/analyzer"
	"github.com/red-council/chainscope/internal/capture"
	"github.com/red-council/chainscope/internal/model"
	"github.com/red-council/chainscope/internal/report"
	"github.com/red-council/chainscope/internal/stream"
)

var (
	exportFile string
	exportOut  string
	exportHTML string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "Export a JSONL capture file instead of fetching")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default <session>.json)")
	exportCmd.Flags().StringVar(&exportHTML, "html", "", "Also write an HTML assessment report to this path")
}

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session's events as a JSON document",
	Long:  "Serializes a session's events with export metadata (timestamp, session id,\nevent count, schema version). Warns when the document exceeds 10 MiB.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	var (
		events    []model.AgentEvent
		sessionID string
		err       error
	)

	switch {
	case exportFile != "":
		events, err = capture.ReadAll(exportFile)
		if err != nil {
			return err
		}
		sessionID = exportFile
		if len(args) == 1 {
			sessionID = args[0]
		}
	case len(args) == 1:
		sessionID = args[0]
		events, err = fetchAllEvents(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
	default:
		return errors.New("a session id or --file is required")
	}

	acc := stream.NewStatic(sessionID, events)
	result, err := acc.Export()
	if err != nil {
		return err
	}
	if result.ExceedsLimit {
		fmt.Fprintf(os.Stderr, "warning: export is %d bytes, above the %d byte advisory limit\n",
			result.SizeBytes, stream.MaxExportSize)
	}

	out := exportOut
	if out == "" {
		out = sessionID + ".json"
	}
	if err := os.WriteFile(out, result.JSON, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d events to %s (%d bytes)\n",
		result.Metadata.EventCount, out, result.SizeBytes)

	if exportHTML != "" {
		a := analyzer.Analyze(model.ToolCalls(events))
		page, err := report.HTML(report.Markdown(a, sessionID, time.Now()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportHTML, page, 0600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote assessment report to %s\n", exportHTML)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/red-council/chainscope/internal/capture"
	"github.com/red-council/chainscope/internal/client"
	"github.com/red-council/chainscope/internal/config"
	"github.com/red-council/chainscope/internal/model"
	"github.com/red-council/chainscope/internal/session"
	"github.com/red-council/chainscope/internal/stream"
)

var (
	watchCapture  string
	watchInterval time.Duration
	watchFilters  []string
	watchQuiet    bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchCapture, "capture", "", "Append received events to a JSONL capture file")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default from saved settings, then config)")
	watchCmd.Flags().StringSliceVar(&watchFilters, "type", nil, "Event types to print (default from saved settings, then all)")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "Suppress per-event output, print status lines only")
}

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Stream a session's events live",
	Long:  "Polls the backend's event log for a session, printing events as they arrive.\nOptionally captures the stream to a JSONL file for later replay and analysis.\nInterval and type filters persist across runs; flags override saved values.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var capLog *capture.Log
	if watchCapture != "" {
		capLog, err = capture.Open(watchCapture)
		if err != nil {
			return err
		}
		defer func() { _ = capLog.Close() }()
	}

	store, err := session.Open(cfg.SessionDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: session registry unavailable: %v\n", err)
		store = nil
	} else {
		defer func() { _ = store.Close() }()
		if _, err := store.Register(session.Session{ID: sessionID, Name: sessionID, BaseURL: cfg.API.BaseURL}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: register session: %v\n", err)
		}
	}

	settings := session.DefaultSettings()
	stored := false
	if store != nil {
		if stored, err = store.HasSettings(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		if loaded, err := store.LoadSettings(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			settings = loaded
		}
	}

	interval := effectiveInterval(watchInterval, stored, settings, cfg)
	filters := effectiveFilters(watchFilters, stored, settings)

	// The callback closes over acc so printed events honor the active
	// filters; the capture always records the full stream.
	var acc *stream.Accumulator
	acc, err = stream.New(c, sessionID,
		stream.WithInterval(interval),
		stream.WithLogger(logger),
		stream.WithOnEvents(func(events []model.AgentEvent) {
			if capLog != nil {
				if err := capLog.RecordBatch(events); err != nil {
					fmt.Fprintf(os.Stderr, "warning: capture write failed: %v\n", err)
				}
			}
			if watchQuiet {
				return
			}
			for _, ev := range printableEvents(acc, events) {
				printEvent(ev)
			}
		}),
	)
	if err != nil {
		return err
	}
	acc.SetFilters(filters)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "watching session %s at %s (poll %v)\n", sessionID, cfg.API.BaseURL, interval)

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				printStatus(acc.Snapshot())
			}
		}
	}()

	_ = acc.Run(ctx)

	snap := acc.Snapshot()
	if store != nil {
		if err := store.Touch(sessionID, snap.TotalCount); err != nil {
			fmt.Fprintf(os.Stderr, "warning: update session: %v\n", err)
		}
		if err := store.SaveSettings(session.Settings{
			PollInterval: interval,
			Filters:      snap.Filters,
			AutoScroll:   settings.AutoScroll,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: save settings: %v\n", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nstream closed: %d events buffered", snap.TotalCount)
	if snap.MaxEventsReached {
		fmt.Fprintf(os.Stderr, " (buffer cap reached, oldest dropped)")
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// effectiveInterval resolves the poll interval: an explicit flag wins, then
// persisted viewer settings, then config.
func effectiveInterval(flagVal time.Duration, stored bool, settings session.Settings, cfg *config.Config) time.Duration {
	if flagVal > 0 {
		return flagVal
	}
	if stored && settings.PollInterval > 0 {
		return settings.PollInterval
	}
	return cfg.Stream.PollInterval
}

// effectiveFilters resolves the event-type filters: an explicit flag wins,
// then persisted viewer settings, then the all-types sentinel.
func effectiveFilters(flagVal []string, stored bool, settings session.Settings) []string {
	if len(flagVal) > 0 {
		return flagVal
	}
	if stored && len(settings.Filters) > 0 {
		return settings.Filters
	}
	return []string{stream.FilterAll}
}

// printableEvents narrows a received batch to the event types passing the
// accumulator's active filters.
func printableEvents(acc *stream.Accumulator, events []model.AgentEvent) []model.AgentEvent {
	out := make([]model.AgentEvent, 0, len(events))
	for _, ev := range events {
		if acc.Allowed(string(ev.EventType)) {
			out = append(out, ev)
		}
	}
	return out
}

func printEvent(ev model.AgentEvent) {
	switch ev.EventType {
	case model.EventToolCall:
		fmt.Printf("%s  %-13s %s\n", ev.Timestamp, ev.EventType, ev.ToolName)
	default:
		fmt.Printf("%s  %-13s\n", ev.Timestamp, ev.EventType)
	}
}

func printStatus(s stream.State) {
	line := fmt.Sprintf("[%s] %d events, %.1f ev/s", s.Status, s.TotalCount, s.Rate)
	if s.Err != "" {
		line += " — " + s.Err
	}
	fmt.Fprintln(os.Stderr, line)
}

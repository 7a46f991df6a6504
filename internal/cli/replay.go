package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/red-council/chainscope/internal/server"
)

var (
	replayPort     int
	replaySessions []string
	replayWatch    bool
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().IntVar(&replayPort, "port", 8420, "HTTP listen port")
	replayCmd.Flags().StringSliceVar(&replaySessions, "session", nil, "session-id=capture.jsonl mapping (repeatable)")
	replayCmd.Flags().BoolVar(&replayWatch, "watch", false, "Hot-reload captures when their files change")
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Serve captured sessions over the events API",
	Long:  "Runs a local backend serving capture files as paginated session event logs,\nso streams and analyses can be exercised without a live assessment run.",
	RunE:  runReplayServer,
}

func runReplayServer(cmd *cobra.Command, args []string) error {
	if len(replaySessions) == 0 {
		return errors.New("at least one --session id=path mapping is required")
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv := server.New(logger)
	for _, mapping := range replaySessions {
		id, path, ok := splitMapping(mapping)
		if !ok {
			return fmt.Errorf("invalid --session mapping %q, want id=path", mapping)
		}
		if err := srv.LoadCapture(id, path); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if replayWatch {
		reloader, err := server.NewReloader(srv, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
		} else {
			go func() { _ = reloader.Run(ctx) }()
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", replayPort),
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "replay server listening on :%d (%d sessions)\n", replayPort, len(replaySessions))
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func splitMapping(s string) (id, path string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], s[:i] != "" && s[i+1:] != ""
		}
	}
	return "", "", false
}

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/red-council/chainscope/internal/session"
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsAddCmd)
	sessionsCmd.AddCommand(sessionsRmCmd)
	sessionsCmd.AddCommand(sessionsSettingsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage the local session registry",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sessions, most recently seen first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		sessions, err := store.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions registered")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLAST SEEN\tEVENTS")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				s.ID, s.Name, s.LastSeenAt.Format(time.RFC3339), s.EventCount)
		}
		return w.Flush()
	},
}

var sessionsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a session, generating an id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := session.Open(cfg.SessionDB)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		sess, err := store.Register(session.Session{Name: args[0], BaseURL: cfg.API.BaseURL})
		if err != nil {
			return err
		}
		fmt.Println(sess.ID)
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Remove a session from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Delete(args[0])
	},
}

var sessionsSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the persisted viewer settings",
	Long:  "Prints the saved watch settings (poll interval, type filters, auto-scroll).\nThese are updated by each watch run and fall back to defaults when unset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		settings, err := store.LoadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		fmt.Printf("poll interval: %v\n", settings.PollInterval)
		fmt.Printf("filters:       %s\n", strings.Join(settings.Filters, ", "))
		fmt.Printf("auto-scroll:   %t\n", settings.AutoScroll)
		return nil
	},
}

func openSessionStore() (*session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.Open(cfg.SessionDB)
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/red-council/chainscope/internal/config"
)

var (
	rootConfig  string
	rootBaseURL string
	rootToken   string
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chainscope",
	Short: "Tool-chain assessment viewer for agent sessions",
	Long:  "Streams, captures, and analyzes agent event logs.\nDetects loop and excessive-call patterns in tool chains and renders assessment reports.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", defaultConfigPath(), "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&rootBaseURL, "base-url", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootToken, "token", "", "Backend bearer token (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.chainscope/config.yaml"
}

// loadConfig reads the config file, prints any fallback warnings to stderr,
// and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, warnings, err := config.Load(rootConfig)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if rootBaseURL != "" {
		cfg.API.BaseURL = rootBaseURL
	}
	if rootToken != "" {
		cfg.API.Token = rootToken
	}
	return cfg, nil
}

// newLogger builds the process logger. Verbose mode switches to the
// human-readable development encoder at debug level.
func newLogger() (*zap.Logger, error) {
	if rootVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

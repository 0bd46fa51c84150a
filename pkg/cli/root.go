// Package cli implements the clashdesk command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clashdesk/clashdesk/pkg/cliconfig"
	"github.com/clashdesk/clashdesk/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	cfgFile   string
	dataDir   string
	logLevel  string
	logFormat string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clashdesk",
	Short: "clashdesk manages layered clash-style proxy configurations",
	Long: `clashdesk keeps a subscription-provided base configuration and a locally
edited working copy side by side. Edits are diffed into named modifications
that survive subscription refreshes and can be replayed at any time.

Configuration can be provided via flags, environment variables (CLASHDESK_
prefix), or a config.yaml in the data directory.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for snapshots and modifications")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
}

// loadSettings resolves settings and applies flag overrides.
func loadSettings() (*cliconfig.Settings, error) {
	settings, err := cliconfig.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	if logLevel != "" {
		settings.Logging.Level = logLevel
	}
	if logFormat != "" {
		settings.Logging.Format = logFormat
	}
	return settings, nil
}

// newLogger builds the operational logger from settings.
func newLogger(settings *cliconfig.Settings) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(settings.Logging.Level),
		Format: logging.ParseFormat(settings.Logging.Format),
		Output: os.Stderr,
	})
}

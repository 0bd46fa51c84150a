package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clashdesk/clashdesk/pkg/admin"
	"github.com/clashdesk/clashdesk/pkg/cliconfig"
	"github.com/clashdesk/clashdesk/pkg/manager"
	"github.com/clashdesk/clashdesk/pkg/store"
	"github.com/clashdesk/clashdesk/pkg/subscription"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configuration management API (foreground)",
	Long: `Start the admin API server. The server exposes the working configuration
for viewing and editing, saved modifications for replay, and subscription
refresh.`,
	Example: `  # Start with defaults
  clashdesk serve

  # Custom listen address and data directory
  clashdesk serve --listen :8080 --data-dir ./data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			settings.ListenAddr = listenAddr
		}
		return runServe(settings, newLogger(settings))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default: "+cliconfig.DefaultListenAddr+")")
}

func runServe(settings *cliconfig.Settings, log *slog.Logger) error {
	st := store.NewFileStore(settings.DataDir, log)
	if err := st.Open(); err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	mgr := manager.New(st, subscription.New(), log)
	api := admin.New(settings.ListenAddr, mgr, admin.WithLogger(log))

	if err := api.Start(); err != nil {
		return fmt.Errorf("start admin API: %w", err)
	}
	log.Info("clashdesk running", "addr", settings.ListenAddr, "data_dir", settings.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	return api.Stop()
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clashdesk/clashdesk/pkg/manager"
	"github.com/clashdesk/clashdesk/pkg/store"
	"github.com/clashdesk/clashdesk/pkg/subscription"
)

var refreshURL string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download the subscription and replace the base configuration",
	Long: `Fetch a fresh configuration from the subscription provider and store it
as the new base. The working copy and saved modifications are untouched;
replay modifications afterwards to re-apply local edits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		url := refreshURL
		if url == "" {
			url = settings.SubscriptionURL
		}
		if url == "" {
			return errors.New("no subscription URL: pass --url or set subscription_url in the config")
		}

		log := newLogger(settings)
		st := store.NewFileStore(settings.DataDir, log)
		if err := st.Open(); err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}

		mgr := manager.New(st, subscription.New(), log)
		res := mgr.RefreshSubscription(cmd.Context(), url)
		if !res.Success {
			return errors.New(res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().StringVar(&refreshURL, "url", "", "Subscription URL (default: subscription_url from config)")
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clashdesk/clashdesk/pkg/logging"
	"github.com/clashdesk/clashdesk/pkg/manager"
	"github.com/clashdesk/clashdesk/pkg/store"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the merged working configuration as YAML",
	Long: `Render the working configuration, base document plus local edits, as a
single YAML document for the consuming router. Writes to stdout unless
--output is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		st := store.NewFileStore(settings.DataDir, logging.Nop())
		if err := st.Open(); err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}

		mgr := manager.New(st, nil, logging.Nop())
		out, err := mgr.Export()
		if err != nil {
			return fmt.Errorf("export configuration: %w", err)
		}

		if exportOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(out), 0600); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

package cmd

import (
	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/output"
	"github.com/marcus/possync/pkg/monitor"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI view of sync activity",
	Long: `Launch a live-updating view of the sync audit log with mapping,
retry, and error counts for the tenant.

Key bindings:
  up/down  Scroll
  p        Pause refresh
  r        Force refresh
  q        Quit`,
	GroupID: "query",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := requireTenant(cmd)
		if err != nil {
			return err
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		return monitor.Run(database, tenant)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().String("tenant", "", "Tenant ID (default from config)")
}

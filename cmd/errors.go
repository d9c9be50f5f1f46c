package cmd

import (
	"fmt"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/output"
	"github.com/spf13/cobra"
)

var errorsCmd = &cobra.Command{
	Use:     "errors",
	Short:   "Show recent sync errors and pending retries",
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

		days, _ := cmd.Flags().GetInt("days")

		errs, err := database.GetSyncErrors(tenant, days)
		if err != nil {
			return err
		}
		pending, err := database.GetPendingRetries(tenant)
		if err != nil {
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(map[string]any{"errors": errs, "pending_retries": pending})
		}

		if len(errs) == 0 && len(pending) == 0 {
			output.Success("no errors in the last %dd", days)
			return nil
		}

		if len(errs) > 0 {
			output.Title(fmt.Sprintf("Errors (last %dd)", days))
			printSyncEntries(errs)
		}
		if len(pending) > 0 {
			output.Title("Awaiting retry")
			printSyncEntries(pending)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(errorsCmd)
	errorsCmd.Flags().String("tenant", "", "Tenant ID (default from config)")
	errorsCmd.Flags().Int("days", 7, "Lookback window in days")
	errorsCmd.Flags().Bool("json", false, "JSON output")
}

package cmd

import (
	"fmt"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/output"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "Show recent sync activity",
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

		limit, _ := cmd.Flags().GetInt("limit")
		op, _ := cmd.Flags().GetString("op")
		status, _ := cmd.Flags().GetString("status")

		entries, err := database.GetSyncHistory(tenant, limit, models.OperationType(op), models.SyncStatus(status))
		if err != nil {
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(entries)
		}

		if len(entries) == 0 {
			output.Subtle("no sync activity")
			return nil
		}
		printSyncEntries(entries)
		return nil
	},
}

func printSyncEntries(entries []models.SyncLogEntry) {
	for _, e := range entries {
		entity := string(e.EntityType)
		if e.EntityID != "" {
			entity += ":" + e.EntityID
		} else if e.RemoteID != "" {
			entity += ":" + e.RemoteID
		}
		line := fmt.Sprintf("%s  %-13s %s  %-28s %s",
			output.FormatTime(e.CreatedAt),
			e.OperationType,
			output.FormatDirection(e.Direction),
			output.Truncate(entity, 28),
			output.FormatStatus(e.Status))
		if e.ErrorMessage != "" {
			line += "  " + output.Truncate(e.ErrorMessage, 50)
		}
		if e.Status == models.SyncStatusRetrying {
			line += fmt.Sprintf("  (attempt %d/%d)", e.RetryCount, e.MaxRetries)
		}
		fmt.Println(line)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("tenant", "", "Tenant ID (default from config)")
	historyCmd.Flags().Int("limit", 50, "Max entries")
	historyCmd.Flags().String("op", "", "Filter by operation (sync_catalog, sync_orders, sync_staff, sync_costs, initial_sync)")
	historyCmd.Flags().String("status", "", "Filter by status (success, error, conflict, skipped, retrying)")
	historyCmd.Flags().Bool("json", false, "JSON output")
}

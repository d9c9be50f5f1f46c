package cmd

import (
	"fmt"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/output"
	"github.com/marcus/possync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show sync state for the tenant",
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

		cfg, err := database.GetConfiguration(tenant)
		if err != nil {
			return err
		}
		mappings, err := database.CountMappings(tenant)
		if err != nil {
			return err
		}
		pending, err := database.GetPendingRetries(tenant)
		if err != nil {
			return err
		}
		errs, err := database.GetSyncErrors(tenant, 1)
		if err != nil {
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(map[string]any{
				"tenant":          tenant,
				"configuration":   cfg,
				"mappings":        mappings,
				"pending_retries": len(pending),
				"errors_today":    len(errs),
				"connected":       syncconfig.IsConnected(),
			})
		}

		output.Title(fmt.Sprintf("Tenant %s", tenant))
		if syncconfig.IsConnected() {
			output.Info("POS: %s (connected)", syncconfig.GetPOSURL())
		} else {
			output.Warning("POS: not connected; run 'possync connect'")
		}

		fmt.Printf("Mappings:        %d\n", mappings)
		fmt.Printf("Pending retries: %d\n", len(pending))
		fmt.Printf("Errors today:    %d\n", len(errs))

		if cfg == nil {
			output.Subtle("no configuration stored; defaults in effect")
			return nil
		}

		auto := "off"
		if cfg.AutoSyncEnabled {
			auto = fmt.Sprintf("on (%s)", output.FormatDirection(cfg.AutoSyncDirection))
		}
		fmt.Printf("Auto sync:       %s\n", auto)
		if cfg.DefaultLocationID != "" {
			fmt.Printf("Location:        %s\n", cfg.DefaultLocationID)
		} else {
			output.Warning("no default location; order sync disabled")
		}
		fmt.Printf("Queue:           batch %d, debounce %dms\n", cfg.SyncQueueBatchSize, cfg.SyncDebounceMs)

		switch cfg.InitialSyncStatus {
		case models.InitialSyncCompleted:
			when := "-"
			if cfg.InitialSyncCompletedAt != nil {
				when = output.FormatTime(*cfg.InitialSyncCompletedAt)
			}
			fmt.Printf("Initial sync:    completed %s\n", when)
		case models.InitialSyncInProgress:
			output.Warning("initial sync in progress")
		case models.InitialSyncFailed:
			output.Error("initial sync failed: %s", cfg.InitialSyncError)
		default:
			output.Subtle("initial sync not run")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("tenant", "", "Tenant ID (default from config)")
	statusCmd.Flags().Bool("json", false, "JSON output")
}

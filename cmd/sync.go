package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/possync/internal/output"
	"github.com/marcus/possync/internal/sync"
	"github.com/marcus/possync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run sync passes against the POS",
	GroupID: "sync",
}

var syncCatalogCmd = &cobra.Command{
	Use:     "catalog",
	Aliases: []string{"menu"},
	Short:   "Reconcile dishes with the POS catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, func(svc *sync.Service, tenant string) (*sync.Result, error) {
			return svc.SyncCatalog(tenant)
		})
	},
}

var syncStaffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Reconcile employees with the POS team roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, func(svc *sync.Service, tenant string) (*sync.Result, error) {
			return svc.SyncStaff(tenant)
		})
	},
}

var syncCostsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Recompute dish costs and push cost attributes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, func(svc *sync.Service, tenant string) (*sync.Result, error) {
			return svc.SyncCosts(tenant)
		})
	},
}

var syncOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Aggregate completed POS orders into daily sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := ordersWindow(cmd)
		if err != nil {
			return err
		}
		return runPass(cmd, func(svc *sync.Service, tenant string) (*sync.Result, error) {
			return svc.SyncOrders(tenant, from, to)
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every sync pass in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := ordersWindow(cmd)
		if err != nil {
			return err
		}
		passes := []func(svc *sync.Service, tenant string) (*sync.Result, error){
			func(svc *sync.Service, tenant string) (*sync.Result, error) { return svc.SyncStaff(tenant) },
			func(svc *sync.Service, tenant string) (*sync.Result, error) { return svc.SyncCatalog(tenant) },
			func(svc *sync.Service, tenant string) (*sync.Result, error) { return svc.SyncOrders(tenant, from, to) },
			func(svc *sync.Service, tenant string) (*sync.Result, error) { return svc.SyncCosts(tenant) },
		}
		for _, pass := range passes {
			if err := runPass(cmd, pass); err != nil {
				return err
			}
		}
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for local edits and auto-sync them",
	Long: `Polls the local store for entities edited since their last sync and feeds
them through the auto-sync queue. Changes are debounced and batched per
the tenant's configuration, with transient failures retried. Entity types
with auto sync turned off are left alone. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := requireTenant(cmd)
		if err != nil {
			return err
		}
		svc, database, err := newService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		interval, _ := cmd.Flags().GetDuration("interval")
		queue := sync.NewQueue(svc, newLogger())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		output.Info("watching tenant %s (scan every %s); ctrl-c to stop", tenant, interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := enqueueChanges(svc, queue, tenant); err != nil {
				output.Warning("change scan: %v", err)
			}
			select {
			case <-ctx.Done():
				// Push out whatever is still queued before exiting.
				queue.Flush()
				queue.Close()
				return nil
			case <-ticker.C:
			}
		}
	},
}

// enqueueChanges feeds one change scan through the auto-sync gate and
// reports the queue's state when anything was picked up.
func enqueueChanges(svc *sync.Service, queue *sync.Queue, tenant string) error {
	items, err := svc.PendingLocalChanges(tenant)
	if err != nil {
		return err
	}
	enqueued := 0
	for _, it := range items {
		ticket, err := queue.AutoEnqueue(it)
		if err != nil {
			return err
		}
		if ticket != nil {
			enqueued++
		}
	}
	if enqueued > 0 {
		pending, draining, next := queue.Status()
		state := "idle"
		if draining {
			state = "draining"
		}
		wait := "-"
		if !next.IsZero() {
			wait = time.Until(next).Round(time.Millisecond).String()
		}
		output.Info("queue: %d pending (%s), next batch in %s", pending, state, wait)
	}
	return nil
}

func runPass(cmd *cobra.Command, pass func(svc *sync.Service, tenant string) (*sync.Result, error)) error {
	tenant, err := requireTenant(cmd)
	if err != nil {
		return err
	}

	svc, database, err := newService()
	if err != nil {
		output.Error("%v", err)
		return err
	}
	defer database.Close()

	result, err := pass(svc, tenant)
	if err != nil {
		output.Error("%v", err)
		return err
	}

	output.Info("%s", result.Summary())
	for _, w := range result.Warnings {
		output.Warning("%s", w)
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d entities failed to sync; see 'possync errors'", result.Errors)
	}
	return nil
}

// ordersWindow resolves the order sync time range: explicit --from/--to
// dates win, else the configured trailing window ending now.
func ordersWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	now := time.Now()
	from := now.Add(-syncconfig.GetOrdersWindow())
	to := now

	if fromStr != "" {
		t, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
		// Include the whole end day.
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return from, to, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncCatalogCmd, syncStaffCmd, syncCostsCmd, syncOrdersCmd, syncAllCmd, syncWatchCmd)
	syncCmd.PersistentFlags().String("tenant", "", "Tenant ID (default from config)")
	syncWatchCmd.Flags().Duration("interval", 5*time.Second, "How often to scan for local edits")
	syncOrdersCmd.Flags().String("from", "", "Start date (yyyy-mm-dd)")
	syncOrdersCmd.Flags().String("to", "", "End date (yyyy-mm-dd, inclusive)")
	syncAllCmd.Flags().String("from", "", "Order start date (yyyy-mm-dd)")
	syncAllCmd.Flags().String("to", "", "Order end date (yyyy-mm-dd, inclusive)")
}

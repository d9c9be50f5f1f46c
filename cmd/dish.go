package cmd

import (
	"fmt"
	"strconv"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/output"
	"github.com/marcus/possync/internal/sync"
	"github.com/spf13/cobra"
)

var dishCmd = &cobra.Command{
	Use:     "dish",
	Short:   "Inspect and edit local dishes",
	GroupID: "sync",
}

var dishListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's dishes",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := requireTenant(cmd)
		if err != nil {
			return err
		}
		_, database, err := newService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		dishes, err := database.ListDishes(tenant, nil)
		if err != nil {
			return err
		}
		for i := range dishes {
			d := &dishes[i]
			fmt.Printf("%-14s %-30s $%8.2f  cost $%7.2f\n",
				d.ID, output.Truncate(d.Name, 30), d.SellingPrice, d.TotalCost)
		}
		return nil
	},
}

var dishSetPriceCmd = &cobra.Command{
	Use:   "set-price <dish-id> <price>",
	Short: "Change a dish's selling price and auto-sync it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := requireTenant(cmd)
		if err != nil {
			return err
		}
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil || price < 0 {
			return fmt.Errorf("invalid price %q", args[1])
		}

		svc, database, err := newService()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		dish, err := database.GetDish(tenant, args[0])
		if err != nil {
			return err
		}
		dish.SellingPrice = price
		if err := database.UpdateDish(dish); err != nil {
			return err
		}
		output.Success("%s priced at $%.2f", dish.Name, price)

		queue := sync.NewQueue(svc, newLogger())
		defer queue.Close()
		ticket, err := queue.AutoEnqueue(sync.Item{
			TenantID:   tenant,
			EntityType: models.EntityDish,
			EntityID:   dish.ID,
			Operation:  models.OpUpdate,
			Priority:   models.PriorityHigh,
		})
		if err != nil {
			return err
		}
		if ticket == nil {
			output.Subtle("auto sync is off for dishes; run 'possync sync catalog' to push")
			return nil
		}
		queue.Flush()
		<-ticket.Done()
		if err := ticket.Err(); err != nil {
			output.Error("sync failed: %v", err)
			return err
		}
		output.Info("synced to POS")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dishCmd)
	dishCmd.AddCommand(dishListCmd, dishSetPriceCmd)
	dishCmd.PersistentFlags().String("tenant", "", "Tenant ID (default from config)")
}

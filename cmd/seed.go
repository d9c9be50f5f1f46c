package cmd

import (
	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/output"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:     "seed",
	Short:   "Load sample dishes, ingredients, and staff",
	Long:    `Populates the tenant with a small sample menu for trying possync without a real kitchen-management dataset.`,
	GroupID: "system",
	Hidden:  true,
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

		if err := seedTenant(database, tenant); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("seeded sample data for tenant %s", tenant)
		return nil
	},
}

func seedTenant(database *db.DB, tenant string) error {
	ingredients := []*models.Ingredient{
		{TenantID: tenant, Name: "Beef mince", UnitCost: 14.50, YieldPercentage: 92},
		{TenantID: tenant, Name: "Brioche bun", UnitCost: 1.10},
		{TenantID: tenant, Name: "Cheddar", UnitCost: 18.00, WastePercentage: 5},
		{TenantID: tenant, Name: "Potatoes", UnitCost: 2.40, YieldPercentage: 80},
		{TenantID: tenant, Name: "Canola oil", UnitCost: 6.00, WasteUnitCost: 6.60},
		{TenantID: tenant, Name: "Napkins", Category: "Consumables", UnitCost: 0.05},
	}
	for _, ing := range ingredients {
		if err := database.CreateIngredient(ing); err != nil {
			return err
		}
	}

	burger := &models.Dish{TenantID: tenant, Name: "Cheeseburger", Category: "Mains", SellingPrice: 16.50}
	fries := &models.Dish{TenantID: tenant, Name: "Chips", Category: "Sides", SellingPrice: 8.00}
	for _, d := range []*models.Dish{burger, fries} {
		if err := database.CreateDish(d); err != nil {
			return err
		}
	}

	recipe := []*models.RecipeLine{
		{TenantID: tenant, DishID: burger.ID, IngredientID: ingredients[0].ID, Quantity: 0.18},
		{TenantID: tenant, DishID: burger.ID, IngredientID: ingredients[1].ID, Quantity: 1},
		{TenantID: tenant, DishID: burger.ID, IngredientID: ingredients[2].ID, Quantity: 0.03},
		{TenantID: tenant, DishID: fries.ID, IngredientID: ingredients[3].ID, Quantity: 0.3},
		{TenantID: tenant, DishID: fries.ID, IngredientID: ingredients[4].ID, Quantity: 0.05},
	}
	for _, r := range recipe {
		if err := database.AddRecipeLine(r); err != nil {
			return err
		}
	}
	for _, dishID := range []string{burger.ID, fries.ID} {
		err := database.AttachDishIngredient(&models.DishIngredient{
			TenantID: tenant, DishID: dishID, IngredientID: ingredients[5].ID, Quantity: 2,
		})
		if err != nil {
			return err
		}
	}

	staff := []*models.Employee{
		{TenantID: tenant, FullName: "Priya Nair", Email: "priya@example.com", Role: "manager", StartDate: "2024-02-01"},
		{TenantID: tenant, FullName: "Tom Okafor", Email: "tom@example.com", Role: "chef", StartDate: "2024-06-15"},
	}
	for _, e := range staff {
		if err := database.CreateEmployee(e); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("tenant", "", "Tenant ID (default from config)")
}

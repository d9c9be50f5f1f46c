package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/possync/internal/models"
)

// CreateIngredient creates a new ingredient, generating its ID when empty.
func (db *DB) CreateIngredient(i *models.Ingredient) error {
	return db.withWriteLock(func() error {
		if i.ID == "" {
			id, err := generateID(ingredientIDPrefix)
			if err != nil {
				return err
			}
			i.ID = id
		}
		if i.YieldPercentage == 0 {
			i.YieldPercentage = 100
		}
		now := time.Now()
		i.CreatedAt = now
		i.UpdatedAt = now

		_, err := db.conn.Exec(`
			INSERT INTO ingredients (id, tenant_id, name, category, unit_cost, waste_unit_cost, yield_percentage, waste_percentage, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, i.ID, i.TenantID, i.Name, i.Category, i.UnitCost, i.WasteUnitCost, i.YieldPercentage, i.WastePercentage, i.CreatedAt, i.UpdatedAt)
		return err
	})
}

// GetIngredient returns an ingredient by ID.
func (db *DB) GetIngredient(tenantID, id string) (*models.Ingredient, error) {
	var i models.Ingredient
	err := db.conn.QueryRow(`
		SELECT id, tenant_id, name, category, unit_cost, waste_unit_cost, yield_percentage, waste_percentage, created_at, updated_at
		FROM ingredients WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(
		&i.ID, &i.TenantID, &i.Name, &i.Category, &i.UnitCost, &i.WasteUnitCost,
		&i.YieldPercentage, &i.WastePercentage, &i.CreatedAt, &i.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ingredient not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// AddRecipeLine attaches an ingredient to a dish's recipe (upsert by
// natural key).
func (db *DB) AddRecipeLine(r *models.RecipeLine) error {
	return db.withWriteLock(func() error {
		if r.ID == "" {
			id, err := generateID(recipeIDPrefix)
			if err != nil {
				return err
			}
			r.ID = id
		}
		r.CreatedAt = time.Now()
		_, err := db.conn.Exec(`
			INSERT INTO recipes (id, tenant_id, dish_id, ingredient_id, quantity, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(tenant_id, dish_id, ingredient_id) DO UPDATE SET quantity = excluded.quantity
		`, r.ID, r.TenantID, r.DishID, r.IngredientID, r.Quantity, r.CreatedAt)
		return err
	})
}

// GetRecipeLine returns a recipe line by ID.
func (db *DB) GetRecipeLine(tenantID, id string) (*models.RecipeLine, error) {
	var r models.RecipeLine
	err := db.conn.QueryRow(`
		SELECT id, tenant_id, dish_id, ingredient_id, quantity, created_at
		FROM recipes WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(&r.ID, &r.TenantID, &r.DishID, &r.IngredientID, &r.Quantity, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recipe line not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipeLines returns the recipe lines for a dish, each joined with its
// ingredient.
func (db *DB) GetRecipeLines(tenantID, dishID string) ([]models.RecipeLine, []models.Ingredient, error) {
	rows, err := db.conn.Query(`
		SELECT r.id, r.tenant_id, r.dish_id, r.ingredient_id, r.quantity, r.created_at,
		       i.id, i.tenant_id, i.name, i.category, i.unit_cost, i.waste_unit_cost, i.yield_percentage, i.waste_percentage, i.created_at, i.updated_at
		FROM recipes r JOIN ingredients i ON i.id = r.ingredient_id
		WHERE r.tenant_id = ? AND r.dish_id = ?
	`, tenantID, dishID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lines []models.RecipeLine
	var ingredients []models.Ingredient
	for rows.Next() {
		var r models.RecipeLine
		var i models.Ingredient
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.DishID, &r.IngredientID, &r.Quantity, &r.CreatedAt,
			&i.ID, &i.TenantID, &i.Name, &i.Category, &i.UnitCost, &i.WasteUnitCost,
			&i.YieldPercentage, &i.WastePercentage, &i.CreatedAt, &i.UpdatedAt,
		); err != nil {
			return nil, nil, err
		}
		lines = append(lines, r)
		ingredients = append(ingredients, i)
	}
	return lines, ingredients, rows.Err()
}

// AttachDishIngredient links an ingredient directly to a dish (upsert).
func (db *DB) AttachDishIngredient(di *models.DishIngredient) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO dish_ingredients (tenant_id, dish_id, ingredient_id, quantity)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(tenant_id, dish_id, ingredient_id) DO UPDATE SET quantity = excluded.quantity
		`, di.TenantID, di.DishID, di.IngredientID, di.Quantity)
		return err
	})
}

// GetDishIngredients returns the directly-attached ingredients for a dish.
func (db *DB) GetDishIngredients(tenantID, dishID string) ([]models.DishIngredient, []models.Ingredient, error) {
	rows, err := db.conn.Query(`
		SELECT di.tenant_id, di.dish_id, di.ingredient_id, di.quantity,
		       i.id, i.tenant_id, i.name, i.category, i.unit_cost, i.waste_unit_cost, i.yield_percentage, i.waste_percentage, i.created_at, i.updated_at
		FROM dish_ingredients di JOIN ingredients i ON i.id = di.ingredient_id
		WHERE di.tenant_id = ? AND di.dish_id = ?
	`, tenantID, dishID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var links []models.DishIngredient
	var ingredients []models.Ingredient
	for rows.Next() {
		var di models.DishIngredient
		var i models.Ingredient
		if err := rows.Scan(
			&di.TenantID, &di.DishID, &di.IngredientID, &di.Quantity,
			&i.ID, &i.TenantID, &i.Name, &i.Category, &i.UnitCost, &i.WasteUnitCost,
			&i.YieldPercentage, &i.WastePercentage, &i.CreatedAt, &i.UpdatedAt,
		); err != nil {
			return nil, nil, err
		}
		links = append(links, di)
		ingredients = append(ingredients, i)
	}
	return links, ingredients, rows.Err()
}

// DishIDsUsingIngredient returns the dishes whose cost depends on the given
// ingredient, through recipes or direct attachment.
func (db *DB) DishIDsUsingIngredient(tenantID, ingredientID string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT dish_id FROM recipes WHERE tenant_id = ? AND ingredient_id = ?
		UNION
		SELECT dish_id FROM dish_ingredients WHERE tenant_id = ? AND ingredient_id = ?
	`, tenantID, ingredientID, tenantID, ingredientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

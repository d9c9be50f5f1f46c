package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/possync/internal/models"
)

const dishColumns = `id, tenant_id, name, description, category, selling_price,
       total_cost, food_cost_percent, gross_profit, gross_profit_margin,
       contributing_margin, contributing_margin_pct, created_at, updated_at`

// CreateDish creates a new dish, generating its ID when empty.
func (db *DB) CreateDish(d *models.Dish) error {
	return db.withWriteLock(func() error {
		if d.ID == "" {
			id, err := generateID(dishIDPrefix)
			if err != nil {
				return err
			}
			d.ID = id
		}
		now := time.Now()
		d.CreatedAt = now
		d.UpdatedAt = now

		_, err := db.conn.Exec(`
			INSERT INTO dishes (id, tenant_id, name, description, category, selling_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, d.TenantID, d.Name, d.Description, d.Category, d.SellingPrice, d.CreatedAt, d.UpdatedAt)
		return err
	})
}

// UpdateDish updates a dish's menu fields (not its cost metrics).
func (db *DB) UpdateDish(d *models.Dish) error {
	return db.withWriteLock(func() error {
		d.UpdatedAt = time.Now()
		_, err := db.conn.Exec(`
			UPDATE dishes SET name = ?, description = ?, category = ?, selling_price = ?, updated_at = ?
			WHERE id = ? AND tenant_id = ?
		`, d.Name, d.Description, d.Category, d.SellingPrice, d.UpdatedAt, d.ID, d.TenantID)
		return err
	})
}

// UpdateDishCosts stores the computed cost metrics on a dish.
func (db *DB) UpdateDishCosts(d *models.Dish) error {
	return db.withWriteLock(func() error {
		d.UpdatedAt = time.Now()
		_, err := db.conn.Exec(`
			UPDATE dishes SET total_cost = ?, food_cost_percent = ?, gross_profit = ?,
			                  gross_profit_margin = ?, contributing_margin = ?, contributing_margin_pct = ?,
			                  updated_at = ?
			WHERE id = ? AND tenant_id = ?
		`, d.TotalCost, d.FoodCostPercent, d.GrossProfit,
			d.GrossProfitMargin, d.ContributingMargin, d.ContributingMarginPct,
			d.UpdatedAt, d.ID, d.TenantID)
		return err
	})
}

// GetDish returns a dish by ID, or an error when it does not exist.
func (db *DB) GetDish(tenantID, id string) (*models.Dish, error) {
	var d models.Dish
	err := db.conn.QueryRow(`
		SELECT `+dishColumns+` FROM dishes WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(
		&d.ID, &d.TenantID, &d.Name, &d.Description, &d.Category, &d.SellingPrice,
		&d.TotalCost, &d.FoodCostPercent, &d.GrossProfit, &d.GrossProfitMargin,
		&d.ContributingMargin, &d.ContributingMarginPct, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dish not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDishes returns a tenant's dishes, optionally restricted to the given
// IDs.
func (db *DB) ListDishes(tenantID string, ids []string) ([]models.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY name"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []models.Dish
	for rows.Next() {
		var d models.Dish
		if err := rows.Scan(
			&d.ID, &d.TenantID, &d.Name, &d.Description, &d.Category, &d.SellingPrice,
			&d.TotalCost, &d.FoodCostPercent, &d.GrossProfit, &d.GrossProfitMargin,
			&d.ContributingMargin, &d.ContributingMarginPct, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

package db

import (
	"time"

	"github.com/marcus/possync/internal/models"
)

// UpsertSalesAggregate writes one per-dish per-date rollup, keyed by
// (tenant, dish, date).
func (db *DB) UpsertSalesAggregate(s *models.SalesAggregate) error {
	return db.withWriteLock(func() error {
		s.UpdatedAt = time.Now()
		_, err := db.conn.Exec(`
			INSERT INTO sales_data (tenant_id, dish_id, date, number_sold, popularity_percentage, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(tenant_id, dish_id, date) DO UPDATE SET
				number_sold = excluded.number_sold,
				popularity_percentage = excluded.popularity_percentage,
				updated_at = excluded.updated_at
		`, s.TenantID, s.DishID, s.Date, s.NumberSold, s.PopularityPercentage, s.UpdatedAt)
		return err
	})
}

// GetSalesForDate returns the rollups for one date.
func (db *DB) GetSalesForDate(tenantID, date string) ([]models.SalesAggregate, error) {
	rows, err := db.conn.Query(`
		SELECT id, tenant_id, dish_id, date, number_sold, popularity_percentage, updated_at
		FROM sales_data WHERE tenant_id = ? AND date = ? ORDER BY dish_id
	`, tenantID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []models.SalesAggregate
	for rows.Next() {
		var s models.SalesAggregate
		if err := rows.Scan(&s.ID, &s.TenantID, &s.DishID, &s.Date, &s.NumberSold, &s.PopularityPercentage, &s.UpdatedAt); err != nil {
			return nil, err
		}
		aggs = append(aggs, s)
	}
	return aggs, rows.Err()
}

// GetSalesForDish returns a dish's rollups within a date range (inclusive,
// yyyy-mm-dd strings).
func (db *DB) GetSalesForDish(tenantID, dishID, from, to string) ([]models.SalesAggregate, error) {
	rows, err := db.conn.Query(`
		SELECT id, tenant_id, dish_id, date, number_sold, popularity_percentage, updated_at
		FROM sales_data WHERE tenant_id = ? AND dish_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, tenantID, dishID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []models.SalesAggregate
	for rows.Next() {
		var s models.SalesAggregate
		if err := rows.Scan(&s.ID, &s.TenantID, &s.DishID, &s.Date, &s.NumberSold, &s.PopularityPercentage, &s.UpdatedAt); err != nil {
			return nil, err
		}
		aggs = append(aggs, s)
	}
	return aggs, rows.Err()
}

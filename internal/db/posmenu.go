package db

import (
	"database/sql"
	"time"

	"github.com/marcus/possync/internal/models"
)

// UpsertPOSMenuItem caches a remote catalog item so later passes can diff
// against it without refetching.
func (db *DB) UpsertPOSMenuItem(item *models.POSMenuItem) error {
	return db.withWriteLock(func() error {
		item.SyncedAt = time.Now()
		_, err := db.conn.Exec(`
			INSERT INTO pos_menu_items (tenant_id, remote_id, location_id, name, description, price, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(tenant_id, remote_id) DO UPDATE SET
				location_id = excluded.location_id,
				name = excluded.name,
				description = excluded.description,
				price = excluded.price,
				synced_at = excluded.synced_at
		`, item.TenantID, item.RemoteID, item.LocationID, item.Name, item.Description, item.Price, item.SyncedAt)
		return err
	})
}

// GetPOSMenuItem returns the cached copy of a remote item, or nil when the
// item has never been fetched.
func (db *DB) GetPOSMenuItem(tenantID, remoteID string) (*models.POSMenuItem, error) {
	var item models.POSMenuItem
	err := db.conn.QueryRow(`
		SELECT tenant_id, remote_id, location_id, name, description, price, synced_at
		FROM pos_menu_items WHERE tenant_id = ? AND remote_id = ?
	`, tenantID, remoteID).Scan(&item.TenantID, &item.RemoteID, &item.LocationID, &item.Name, &item.Description, &item.Price, &item.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

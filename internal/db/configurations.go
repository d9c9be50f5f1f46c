package db

import (
	"database/sql"
	"time"

	"github.com/marcus/possync/internal/models"
)

// GetConfiguration returns the tenant's sync configuration, or nil if the
// tenant has none.
func (db *DB) GetConfiguration(tenantID string) (*models.Configuration, error) {
	var c models.Configuration
	var enabled, staff, dishes, costs int
	var startedAt, completedAt sql.NullTime

	err := db.conn.QueryRow(`
		SELECT tenant_id, auto_sync_enabled, auto_sync_direction, auto_sync_staff, auto_sync_dishes, auto_sync_costs,
		       sync_debounce_ms, sync_queue_batch_size, default_location_id,
		       initial_sync_status, initial_sync_started_at, initial_sync_completed_at, initial_sync_error,
		       created_at, updated_at
		FROM configurations WHERE tenant_id = ?
	`, tenantID).Scan(
		&c.TenantID, &enabled, &c.AutoSyncDirection, &staff, &dishes, &costs,
		&c.SyncDebounceMs, &c.SyncQueueBatchSize, &c.DefaultLocationID,
		&c.InitialSyncStatus, &startedAt, &completedAt, &c.InitialSyncError,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.AutoSyncEnabled = enabled != 0
	c.AutoSyncStaff = staff != 0
	c.AutoSyncDishes = dishes != 0
	c.AutoSyncCosts = costs != 0
	if startedAt.Valid {
		c.InitialSyncStartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		c.InitialSyncCompletedAt = &completedAt.Time
	}
	return &c, nil
}

// UpsertConfiguration creates or replaces the tenant's sync configuration.
// The initial_sync_* columns are preserved on update; they are owned by the
// sync engine, not the host application.
func (db *DB) UpsertConfiguration(c *models.Configuration) error {
	return db.withWriteLock(func() error {
		now := time.Now()
		if c.AutoSyncDirection == "" {
			c.AutoSyncDirection = models.DirectionLocalToRemote
		}
		if c.SyncDebounceMs <= 0 {
			c.SyncDebounceMs = 1000
		}
		if c.SyncQueueBatchSize <= 0 {
			c.SyncQueueBatchSize = 10
		}
		_, err := db.conn.Exec(`
			INSERT INTO configurations (tenant_id, auto_sync_enabled, auto_sync_direction, auto_sync_staff, auto_sync_dishes, auto_sync_costs,
			                            sync_debounce_ms, sync_queue_batch_size, default_location_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(tenant_id) DO UPDATE SET
				auto_sync_enabled = excluded.auto_sync_enabled,
				auto_sync_direction = excluded.auto_sync_direction,
				auto_sync_staff = excluded.auto_sync_staff,
				auto_sync_dishes = excluded.auto_sync_dishes,
				auto_sync_costs = excluded.auto_sync_costs,
				sync_debounce_ms = excluded.sync_debounce_ms,
				sync_queue_batch_size = excluded.sync_queue_batch_size,
				default_location_id = excluded.default_location_id,
				updated_at = excluded.updated_at
		`, c.TenantID, boolToInt(c.AutoSyncEnabled), c.AutoSyncDirection, boolToInt(c.AutoSyncStaff), boolToInt(c.AutoSyncDishes), boolToInt(c.AutoSyncCosts),
			c.SyncDebounceMs, c.SyncQueueBatchSize, c.DefaultLocationID, now, now)
		return err
	})
}

// SetInitialSyncStarted marks the tenant's initial sync in progress.
func (db *DB) SetInitialSyncStarted(tenantID string, at time.Time) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			UPDATE configurations
			SET initial_sync_status = ?, initial_sync_started_at = ?, initial_sync_error = '', updated_at = ?
			WHERE tenant_id = ?
		`, models.InitialSyncInProgress, at, time.Now(), tenantID)
		return err
	})
}

// SetInitialSyncFinished records the terminal initial-sync state for the
// tenant. errMsg is empty on success.
func (db *DB) SetInitialSyncFinished(tenantID string, status models.InitialSyncStatus, at time.Time, errMsg string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			UPDATE configurations
			SET initial_sync_status = ?, initial_sync_completed_at = ?, initial_sync_error = ?, updated_at = ?
			WHERE tenant_id = ?
		`, status, at, errMsg, time.Now(), tenantID)
		return err
	})
}

// SetDefaultLocation sets the tenant's target POS location, creating the
// configuration row with defaults when the tenant has none yet.
func (db *DB) SetDefaultLocation(tenantID, locationID string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO configurations (tenant_id, default_location_id)
			VALUES (?, ?)
			ON CONFLICT(tenant_id) DO UPDATE SET default_location_id = excluded.default_location_id, updated_at = ?
		`, tenantID, locationID, time.Now())
		return err
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/possync/internal/models"
)

const syncLogColumns = `id, tenant_id, operation_type, direction, entity_type, entity_id, remote_id,
       status, error_message, error_details, sync_metadata, retry_count, max_retries, next_retry_at, created_at`

// RecordSyncLog inserts a new audit row. Rows are never updated afterwards
// except through UpdateRetryInfo.
func (db *DB) RecordSyncLog(e *models.SyncLogEntry) error {
	return db.withWriteLock(func() error {
		e.CreatedAt = time.Now()

		var nextRetry interface{}
		if e.NextRetryAt != nil {
			nextRetry = *e.NextRetryAt
		}

		res, err := db.conn.Exec(`
			INSERT INTO sync_log (tenant_id, operation_type, direction, entity_type, entity_id, remote_id,
			                      status, error_message, error_details, sync_metadata, retry_count, max_retries, next_retry_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.TenantID, e.OperationType, e.Direction, e.EntityType, e.EntityID, e.RemoteID,
			e.Status, e.ErrorMessage, e.ErrorDetails, e.SyncMetadata, e.RetryCount, e.MaxRetries, nextRetry, e.CreatedAt)
		if err != nil {
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
}

// UpdateRetryInfo advances the retry bookkeeping on an outstanding entry.
// Used only by the queue's retry path.
func (db *DB) UpdateRetryInfo(logID int64, retryCount int, nextRetryAt *time.Time, status models.SyncStatus) error {
	return db.withWriteLock(func() error {
		var nextRetry interface{}
		if nextRetryAt != nil {
			nextRetry = *nextRetryAt
		}
		res, err := db.conn.Exec(`
			UPDATE sync_log SET retry_count = ?, next_retry_at = ?, status = ? WHERE id = ?
		`, retryCount, nextRetry, status, logID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("sync log entry not found: %d", logID)
		}
		return nil
	})
}

// GetSyncHistory returns recent entries, newest first, optionally filtered by
// operation type and status.
func (db *DB) GetSyncHistory(tenantID string, limit int, opType models.OperationType, status models.SyncStatus) ([]models.SyncLogEntry, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_log WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if opType != "" {
		query += ` AND operation_type = ?`
		args = append(args, opType)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return db.querySyncLog(query, args...)
}

// GetSyncErrors returns error entries from the trailing number of days.
func (db *DB) GetSyncErrors(tenantID string, days int) ([]models.SyncLogEntry, error) {
	since := time.Now().AddDate(0, 0, -days)
	return db.querySyncLog(`
		SELECT `+syncLogColumns+`
		FROM sync_log WHERE tenant_id = ? AND status = ? AND created_at >= ?
		ORDER BY id DESC
	`, tenantID, models.SyncStatusError, since)
}

// GetPendingRetries returns retrying entries whose next_retry_at has passed
// and which still have attempts left. Read-only inspection; the in-process
// queue is the sole retry executor.
func (db *DB) GetPendingRetries(tenantID string) ([]models.SyncLogEntry, error) {
	return db.querySyncLog(`
		SELECT `+syncLogColumns+`
		FROM sync_log
		WHERE tenant_id = ? AND status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND retry_count < max_retries
		ORDER BY next_retry_at ASC
	`, tenantID, models.SyncStatusRetrying, time.Now())
}

func (db *DB) querySyncLog(query string, args ...interface{}) ([]models.SyncLogEntry, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SyncLogEntry
	for rows.Next() {
		var e models.SyncLogEntry
		var nextRetry sql.NullTime
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.OperationType, &e.Direction, &e.EntityType, &e.EntityID, &e.RemoteID,
			&e.Status, &e.ErrorMessage, &e.ErrorDetails, &e.SyncMetadata, &e.RetryCount, &e.MaxRetries, &nextRetry, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if nextRetry.Valid {
			e.NextRetryAt = &nextRetry.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

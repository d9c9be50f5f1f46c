package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/possync/internal/models"
)

// ErrDuplicateMapping is returned when an insert violates one of the mapping
// uniqueness constraints, meaning another caller created the row first.
var ErrDuplicateMapping = fmt.Errorf("mapping already exists")

const mappingColumns = `id, tenant_id, entity_type, local_id, remote_id, remote_location_id,
       sync_direction, last_synced_at, last_synced_from_remote, last_synced_to_remote,
       sync_metadata, created_at, updated_at`

// InsertMapping creates a new mapping row. A violation of either uniqueness
// constraint is reported as ErrDuplicateMapping so callers can retry the
// lookup instead of failing.
func (db *DB) InsertMapping(m *models.Mapping) error {
	return db.withWriteLock(func() error {
		id, err := generateMappingID()
		if err != nil {
			return err
		}
		m.ID = id

		if m.SyncDirection == "" {
			m.SyncDirection = models.DirectionBidirectional
		}
		if m.SyncMetadata == nil {
			m.SyncMetadata = map[string]string{}
		}

		now := time.Now()
		m.CreatedAt = now
		m.UpdatedAt = now

		meta, err := json.Marshal(m.SyncMetadata)
		if err != nil {
			return fmt.Errorf("marshal sync metadata: %w", err)
		}

		_, err = db.conn.Exec(`
			INSERT INTO mappings (id, tenant_id, entity_type, local_id, remote_id, remote_location_id, sync_direction, sync_metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, m.TenantID, m.EntityType, m.LocalID, m.RemoteID, m.RemoteLocationID, m.SyncDirection, string(meta), m.CreatedAt, m.UpdatedAt)

		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateMapping
		}
		return err
	})
}

// GetMappingByLocalID returns the mapping for a local entity, or nil.
func (db *DB) GetMappingByLocalID(tenantID string, entityType models.EntityType, localID string) (*models.Mapping, error) {
	row := db.conn.QueryRow(`
		SELECT `+mappingColumns+`
		FROM mappings WHERE tenant_id = ? AND entity_type = ? AND local_id = ?
	`, tenantID, entityType, localID)
	return scanMapping(row)
}

// GetMappingByRemoteID returns the mapping for a remote entity, or nil.
// An empty remoteLocationID matches only location-agnostic mappings; a
// location-scoped mapping is never returned for a location-agnostic lookup.
func (db *DB) GetMappingByRemoteID(tenantID string, entityType models.EntityType, remoteID, remoteLocationID string) (*models.Mapping, error) {
	row := db.conn.QueryRow(`
		SELECT `+mappingColumns+`
		FROM mappings WHERE tenant_id = ? AND entity_type = ? AND remote_id = ? AND remote_location_id = ?
	`, tenantID, entityType, remoteID, remoteLocationID)
	return scanMapping(row)
}

// GetMapping returns a mapping by its ID, or nil.
func (db *DB) GetMapping(id string) (*models.Mapping, error) {
	row := db.conn.QueryRow(`SELECT `+mappingColumns+` FROM mappings WHERE id = ?`, id)
	return scanMapping(row)
}

// CountMappings returns the number of mappings for a tenant.
func (db *DB) CountMappings(tenantID string) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM mappings WHERE tenant_id = ?`, tenantID).Scan(&count)
	return count, err
}

// UpdateMappingDirection changes a mapping's sync direction.
func (db *DB) UpdateMappingDirection(id string, direction models.SyncDirection) error {
	return db.withWriteLock(func() error {
		res, err := db.conn.Exec(`UPDATE mappings SET sync_direction = ?, updated_at = ? WHERE id = ?`,
			direction, time.Now(), id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

// UpdateMappingMetadata replaces a mapping's sync metadata.
func (db *DB) UpdateMappingMetadata(id string, metadata map[string]string) error {
	return db.withWriteLock(func() error {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal sync metadata: %w", err)
		}
		res, err := db.conn.Exec(`UPDATE mappings SET sync_metadata = ?, updated_at = ? WHERE id = ?`,
			string(meta), time.Now(), id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

// TouchMapping advances last_synced_at and, depending on fromRemote/toRemote,
// the directional timestamps.
func (db *DB) TouchMapping(id string, fromRemote, toRemote bool) error {
	return db.withWriteLock(func() error {
		now := time.Now()
		query := `UPDATE mappings SET last_synced_at = ?, updated_at = ?`
		args := []interface{}{now, now}
		if fromRemote {
			query += `, last_synced_from_remote = ?`
			args = append(args, now)
		}
		if toRemote {
			query += `, last_synced_to_remote = ?`
			args = append(args, now)
		}
		query += ` WHERE id = ?`
		args = append(args, id)

		res, err := db.conn.Exec(query, args...)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mapping not found: %s", id)
	}
	return nil
}

// scanMapping scans one mapping row; sql.ErrNoRows becomes (nil, nil).
func scanMapping(row *sql.Row) (*models.Mapping, error) {
	var m models.Mapping
	var lastSynced, fromRemote, toRemote sql.NullTime
	var meta string

	err := row.Scan(
		&m.ID, &m.TenantID, &m.EntityType, &m.LocalID, &m.RemoteID, &m.RemoteLocationID,
		&m.SyncDirection, &lastSynced, &fromRemote, &toRemote,
		&meta, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastSynced.Valid {
		m.LastSyncedAt = &lastSynced.Time
	}
	if fromRemote.Valid {
		m.LastSyncedFromRemote = &fromRemote.Time
	}
	if toRemote.Valid {
		m.LastSyncedToRemote = &toRemote.Time
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &m.SyncMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal sync metadata: %w", err)
		}
	}
	return &m, nil
}

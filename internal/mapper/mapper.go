// Package mapper maintains the identity bridge between local records and
// their POS counterparts. Every cross-system operation resolves identity
// through here; nothing else is allowed to guess at remote ids.
package mapper

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
)

// ConflictResolution selects which side wins when both systems changed the
// same entity.
type ConflictResolution string

const (
	ResolveRemoteWins ConflictResolution = "remote_wins"
	ResolveLocalWins  ConflictResolution = "local_wins"
	ResolveManual     ConflictResolution = "manual"
)

// Mapper resolves and records entity identity across the two systems.
type Mapper struct {
	db     *db.DB
	logger *slog.Logger
}

// New creates a Mapper over the given store.
func New(database *db.DB, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{db: database, logger: logger}
}

// Create records a new mapping. The sync direction defaults to
// bidirectional when unset.
func (m *Mapper) Create(mapping *models.Mapping) error {
	if mapping.TenantID == "" || mapping.LocalID == "" || mapping.RemoteID == "" {
		return fmt.Errorf("mapping requires tenant, local, and remote ids")
	}
	return m.db.InsertMapping(mapping)
}

// GetByLocalID looks up the mapping for a local record. Returns nil when the
// record has never been synced.
func (m *Mapper) GetByLocalID(tenantID string, entityType models.EntityType, localID string) (*models.Mapping, error) {
	return m.db.GetMappingByLocalID(tenantID, entityType, localID)
}

// GetByRemoteID looks up the mapping for a remote object. A lookup with an
// empty location only matches location-agnostic mappings; it never falls
// back to a location-scoped row.
func (m *Mapper) GetByRemoteID(tenantID string, entityType models.EntityType, remoteID, remoteLocationID string) (*models.Mapping, error) {
	return m.db.GetMappingByRemoteID(tenantID, entityType, remoteID, remoteLocationID)
}

// FindOrCreate resolves the mapping for a local/remote pair, creating it
// when neither side is known yet. Lookup order is local id first, then
// remote id; a unique-constraint race on create falls back to re-reading
// whichever row won.
func (m *Mapper) FindOrCreate(tenantID string, entityType models.EntityType, localID, remoteID, remoteLocationID string) (*models.Mapping, error) {
	existing, err := m.db.GetMappingByLocalID(tenantID, entityType, localID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	existing, err = m.db.GetMappingByRemoteID(tenantID, entityType, remoteID, remoteLocationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	mapping := &models.Mapping{
		TenantID:         tenantID,
		EntityType:       entityType,
		LocalID:          localID,
		RemoteID:         remoteID,
		RemoteLocationID: remoteLocationID,
		SyncDirection:    models.DirectionLocalToRemote,
	}
	err = m.db.InsertMapping(mapping)
	if errors.Is(err, db.ErrDuplicateMapping) {
		// Lost a race with a concurrent sync; the winner's row is
		// authoritative.
		m.logger.Debug("mapping insert raced, re-reading",
			"tenant", tenantID, "entity_type", entityType, "local_id", localID)
		if won, lookupErr := m.db.GetMappingByLocalID(tenantID, entityType, localID); lookupErr == nil && won != nil {
			return won, nil
		}
		return m.db.GetMappingByRemoteID(tenantID, entityType, remoteID, remoteLocationID)
	}
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// ResolveConflict applies a conflict decision to a mapping. Remote-wins and
// local-wins narrow the mapping to one-way sync; manual keeps it
// bidirectional and stamps the decision into the metadata for the operator
// to act on.
func (m *Mapper) ResolveConflict(mappingID string, resolution ConflictResolution) error {
	mapping, err := m.db.GetMapping(mappingID)
	if err != nil {
		return err
	}
	if mapping == nil {
		return fmt.Errorf("mapping not found: %s", mappingID)
	}

	switch resolution {
	case ResolveRemoteWins:
		if err := m.db.UpdateMappingDirection(mappingID, models.DirectionRemoteToLocal); err != nil {
			return err
		}
	case ResolveLocalWins:
		if err := m.db.UpdateMappingDirection(mappingID, models.DirectionLocalToRemote); err != nil {
			return err
		}
	case ResolveManual:
		// Direction is left alone; the operator decides per field.
	default:
		return fmt.Errorf("unknown conflict resolution: %q", resolution)
	}

	metadata := mapping.SyncMetadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata["conflict_resolution"] = string(resolution)
	metadata["conflict_resolved_at"] = time.Now().UTC().Format(time.RFC3339)
	return m.db.UpdateMappingMetadata(mappingID, metadata)
}

// TouchSynced stamps the last-synced timestamps after a successful sync in
// the given direction.
func (m *Mapper) TouchSynced(mappingID string, direction models.SyncDirection) error {
	fromRemote := direction == models.DirectionRemoteToLocal || direction == models.DirectionBidirectional
	toRemote := direction == models.DirectionLocalToRemote || direction == models.DirectionBidirectional
	return m.db.TouchMapping(mappingID, fromRemote, toRemote)
}

// Count returns the number of mappings for a tenant. Zero means the tenant
// has never synced and is due for an initial sync.
func (m *Mapper) Count(tenantID string) (int, error) {
	return m.db.CountMappings(tenantID)
}

package monitor

import (
	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
)

// Snapshot is one refresh of everything the monitor shows.
type Snapshot struct {
	Entries       []models.SyncLogEntry
	Mappings      int
	PendingRetry  int
	Errors24h     int
	Configuration *models.Configuration
}

const historyDepth = 200

// loadSnapshot reads the monitor's data in one pass. Reads are cheap; the
// monitor polls rather than watching for changes.
func loadSnapshot(database *db.DB, tenantID string) (*Snapshot, error) {
	entries, err := database.GetSyncHistory(tenantID, historyDepth, "", "")
	if err != nil {
		return nil, err
	}
	mappings, err := database.CountMappings(tenantID)
	if err != nil {
		return nil, err
	}
	pending, err := database.GetPendingRetries(tenantID)
	if err != nil {
		return nil, err
	}
	errs, err := database.GetSyncErrors(tenantID, 1)
	if err != nil {
		return nil, err
	}
	cfg, err := database.GetConfiguration(tenantID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Entries:       entries,
		Mappings:      mappings,
		PendingRetry:  len(pending),
		Errors24h:     len(errs),
		Configuration: cfg,
	}, nil
}

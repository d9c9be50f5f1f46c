// Package sync implements the reconcilers that keep the local kitchen
// store and the POS in agreement: catalog, staff, costs, and order
// aggregation, plus the queue that batches and retries their work.
package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/mapper"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

// POSClient is the slice of the POS API the reconcilers use. Satisfied by
// *posclient.Client; tests substitute a fake.
type POSClient interface {
	ListAllCatalog() ([]posclient.CatalogObject, error)
	RetrieveCatalogObject(objectID string) (*posclient.CatalogObject, error)
	UpsertCatalogObject(obj *posclient.CatalogObject) (*posclient.CatalogObject, error)
	SearchAllTeamMembers(statuses []string) ([]posclient.TeamMember, error)
	CreateTeamMember(tm *posclient.TeamMember) (*posclient.TeamMember, error)
	UpdateTeamMember(teamMemberID string, tm *posclient.TeamMember) (*posclient.TeamMember, error)
	SearchAllOrders(query *posclient.SearchOrdersQuery) ([]posclient.Order, error)
}

// Service runs the reconcilers for one store against one POS account.
type Service struct {
	db     *db.DB
	mapper *mapper.Mapper
	pos    POSClient
	logger *slog.Logger
}

// NewService builds a Service over the given store and POS client.
func NewService(database *db.DB, pos POSClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     database,
		mapper: mapper.New(database, logger),
		pos:    pos,
		logger: logger,
	}
}

// Mapper exposes the identity mapper, for conflict resolution commands.
func (s *Service) Mapper() *mapper.Mapper {
	return s.mapper
}

// config returns the tenant's configuration, falling back to defaults when
// the tenant has none yet.
func (s *Service) config(tenantID string) (*models.Configuration, error) {
	cfg, err := s.db.GetConfiguration(tenantID)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg == nil {
		cfg = &models.Configuration{
			TenantID:           tenantID,
			AutoSyncEnabled:    true,
			AutoSyncDirection:  models.DirectionLocalToRemote,
			AutoSyncStaff:      true,
			AutoSyncDishes:     true,
			AutoSyncCosts:      true,
			SyncDebounceMs:     1000,
			SyncQueueBatchSize: 10,
		}
	}
	return cfg, nil
}

// audit writes one sync_log row. Audit failures are logged, never
// propagated; a broken audit trail must not fail the sync itself.
func (s *Service) audit(e *models.SyncLogEntry) {
	if e.MaxRetries == 0 {
		e.MaxRetries = defaultMaxRetries
	}
	if err := s.db.RecordSyncLog(e); err != nil {
		s.logger.Error("record sync log",
			"tenant", e.TenantID, "op", e.OperationType, "entity", e.EntityID, "error", err)
	}
}

func (s *Service) auditSuccess(tenantID string, op models.OperationType, dir models.SyncDirection, entityType models.EntityType, entityID, remoteID string) {
	s.audit(&models.SyncLogEntry{
		TenantID:      tenantID,
		OperationType: op,
		Direction:     dir,
		EntityType:    entityType,
		EntityID:      entityID,
		RemoteID:      remoteID,
		Status:        models.SyncStatusSuccess,
	})
}

func (s *Service) auditError(tenantID string, op models.OperationType, dir models.SyncDirection, entityType models.EntityType, entityID, remoteID string, err error) {
	s.audit(&models.SyncLogEntry{
		TenantID:      tenantID,
		OperationType: op,
		Direction:     dir,
		EntityType:    entityType,
		EntityID:      entityID,
		RemoteID:      remoteID,
		Status:        models.SyncStatusError,
		ErrorMessage:  err.Error(),
	})
}

func newResult(op models.OperationType, dir models.SyncDirection) *Result {
	now := time.Now()
	return &Result{Operation: op, Direction: dir, StartedAt: now, FinishedAt: now}
}

func (r *Result) finish() *Result {
	r.FinishedAt = time.Now()
	return r
}

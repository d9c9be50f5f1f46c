package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcus/possync/internal/models"
)

// initialOrdersWindow is how far back the first orders pull reaches.
const initialOrdersWindow = 30 * 24 * time.Hour

// ShouldPerformInitialSync reports whether the tenant has never been
// synced. A tenant with zero mappings and no run in flight is due.
func (s *Service) ShouldPerformInitialSync(tenantID string) (bool, error) {
	cfg, err := s.config(tenantID)
	if err != nil {
		return false, err
	}
	if cfg.InitialSyncStatus == models.InitialSyncInProgress {
		return false, nil
	}
	count, err := s.mapper.Count(tenantID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// PerformInitialSync runs the full first-contact sequence: staff, catalog,
// a month of orders, then costs. Step failures are collected rather than
// aborting the run. The run's status is tracked on the tenant's
// configuration; a panic in any step is caught and recorded as a failed
// run.
func (s *Service) PerformInitialSync(tenantID string) (result *InitialSyncResult, err error) {
	cfg, err := s.config(tenantID)
	if err != nil {
		return nil, err
	}
	// Persist the configuration first so the status columns have a row
	// to land on.
	if err := s.db.UpsertConfiguration(cfg); err != nil {
		return nil, fmt.Errorf("persist configuration: %w", err)
	}

	result = &InitialSyncResult{StartedAt: time.Now()}
	if err := s.db.SetInitialSyncStarted(tenantID, result.StartedAt); err != nil {
		return nil, fmt.Errorf("mark initial sync started: %w", err)
	}
	s.logger.Info("initial sync started", "tenant", tenantID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("initial sync panicked: %v", r)
			s.finishInitialSync(tenantID, result, err)
		}
	}()

	steps := []struct {
		name string
		run  func() (*Result, error)
	}{
		{"staff", func() (*Result, error) { return s.SyncStaff(tenantID) }},
		{"catalog", func() (*Result, error) { return s.SyncCatalog(tenantID) }},
		{"orders", func() (*Result, error) {
			if cfg.DefaultLocationID == "" {
				// No location yet; sales history can backfill later.
				r := newResult(models.OpSyncOrders, models.DirectionRemoteToLocal)
				r.Warnings = append(r.Warnings, "orders pull skipped: no default location")
				return r.finish(), nil
			}
			now := time.Now()
			return s.SyncOrders(tenantID, now.Add(-initialOrdersWindow), now)
		}},
		{"costs", func() (*Result, error) { return s.SyncCosts(tenantID) }},
	}

	// A failing step does not stop the ones after it; 'possync sync all'
	// can fill the gaps later.
	var stepErrs []string
	for _, step := range steps {
		stepResult, stepErr := step.run()
		result.Steps = append(result.Steps, InitialSyncStep{Name: step.name, Result: stepResult, Err: stepErr})
		if stepErr != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("%s: %v", step.name, stepErr))
			s.logger.Error("initial sync step failed", "tenant", tenantID, "step", step.name, "error", stepErr)
		}
	}

	if len(stepErrs) > 0 {
		err = fmt.Errorf("initial sync: %s", strings.Join(stepErrs, "; "))
		s.finishInitialSync(tenantID, result, err)
		return result, err
	}

	s.finishInitialSync(tenantID, result, nil)
	return result, nil
}

// finishInitialSync records the run's terminal state on the configuration
// and in the audit log.
func (s *Service) finishInitialSync(tenantID string, result *InitialSyncResult, runErr error) {
	result.FinishedAt = time.Now()

	status := models.InitialSyncCompleted
	errMsg := ""
	logStatus := models.SyncStatusSuccess
	if runErr != nil {
		status = models.InitialSyncFailed
		errMsg = runErr.Error()
		logStatus = models.SyncStatusError
	}
	result.Status = status

	if err := s.db.SetInitialSyncFinished(tenantID, status, result.FinishedAt, errMsg); err != nil {
		s.logger.Error("mark initial sync finished", "tenant", tenantID, "error", err)
	}
	s.audit(&models.SyncLogEntry{
		TenantID:      tenantID,
		OperationType: models.OpInitialSync,
		Direction:     models.DirectionBidirectional,
		EntityType:    models.EntityLocation,
		Status:        logStatus,
		ErrorMessage:  errMsg,
	})

	if runErr != nil {
		s.logger.Error("initial sync failed", "tenant", tenantID, "error", runErr)
	} else {
		s.logger.Info("initial sync completed", "tenant", tenantID,
			"duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	}
}

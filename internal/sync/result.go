package sync

import (
	"fmt"
	"time"

	"github.com/marcus/possync/internal/models"
)

// Result summarises one reconciler pass.
type Result struct {
	Operation  models.OperationType
	Direction  models.SyncDirection
	Created    int
	Updated    int
	Skipped    int
	Conflicts  int
	Errors     int
	Warnings   []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Merge folds another pass into this one. Used when a sync runs both
// directions back to back.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Conflicts += other.Conflicts
	r.Errors += other.Errors
	r.Warnings = append(r.Warnings, other.Warnings...)
	if other.FinishedAt.After(r.FinishedAt) {
		r.FinishedAt = other.FinishedAt
	}
}

// Summary returns a one-line human description of the pass.
func (r *Result) Summary() string {
	return fmt.Sprintf("%s: %d created, %d updated, %d skipped, %d conflicts, %d errors",
		r.Operation, r.Created, r.Updated, r.Skipped, r.Conflicts, r.Errors)
}

// InitialSyncStep is one step of an initial sync run.
type InitialSyncStep struct {
	Name   string
	Result *Result
	Err    error
}

// InitialSyncResult is the outcome of a full initial sync.
type InitialSyncResult struct {
	Steps      []InitialSyncStep
	Status     models.InitialSyncStatus
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the first step error, or nil if all steps succeeded.
func (r *InitialSyncResult) Failed() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

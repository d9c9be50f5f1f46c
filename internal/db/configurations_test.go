package db

import (
	"testing"
	"time"

	"github.com/marcus/possync/internal/models"
)

func TestUpsertConfiguration_Defaults(t *testing.T) {
	db := newTestDB(t)

	c := &models.Configuration{TenantID: "t1", AutoSyncEnabled: true}
	if err := db.UpsertConfiguration(c); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	got, err := db.GetConfiguration("t1")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got == nil {
		t.Fatal("configuration not found after upsert")
	}
	if got.AutoSyncDirection != models.DirectionLocalToRemote {
		t.Errorf("default direction = %q, want local_to_remote", got.AutoSyncDirection)
	}
	if got.SyncDebounceMs != 1000 {
		t.Errorf("default debounce = %d, want 1000", got.SyncDebounceMs)
	}
	if got.SyncQueueBatchSize != 10 {
		t.Errorf("default batch size = %d, want 10", got.SyncQueueBatchSize)
	}
	if !got.AutoSyncEnabled {
		t.Error("auto_sync_enabled not persisted")
	}
}

func TestGetConfiguration_Missing(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetConfiguration("nobody")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown tenant, got %+v", got)
	}
}

func TestUpsertConfiguration_PreservesInitialSyncState(t *testing.T) {
	db := newTestDB(t)

	c := &models.Configuration{TenantID: "t1", AutoSyncEnabled: true, AutoSyncDishes: true}
	if err := db.UpsertConfiguration(c); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	started := time.Now().Truncate(time.Second)
	if err := db.SetInitialSyncStarted("t1", started); err != nil {
		t.Fatalf("SetInitialSyncStarted failed: %v", err)
	}
	if err := db.SetInitialSyncFinished("t1", models.InitialSyncCompleted, started.Add(time.Minute), ""); err != nil {
		t.Fatalf("SetInitialSyncFinished failed: %v", err)
	}

	// Host application re-saving its settings must not reset sync-engine state.
	c.AutoSyncDishes = false
	if err := db.UpsertConfiguration(c); err != nil {
		t.Fatalf("second UpsertConfiguration failed: %v", err)
	}

	got, err := db.GetConfiguration("t1")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got.AutoSyncDishes {
		t.Error("auto_sync_dishes update not applied")
	}
	if got.InitialSyncStatus != models.InitialSyncCompleted {
		t.Errorf("initial sync status = %q, want completed", got.InitialSyncStatus)
	}
	if got.InitialSyncStartedAt == nil || got.InitialSyncCompletedAt == nil {
		t.Error("initial sync timestamps were reset by upsert")
	}
}

func TestSetInitialSyncFinished_Failure(t *testing.T) {
	db := newTestDB(t)

	if err := db.UpsertConfiguration(&models.Configuration{TenantID: "t1"}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}
	if err := db.SetInitialSyncStarted("t1", time.Now()); err != nil {
		t.Fatalf("SetInitialSyncStarted failed: %v", err)
	}
	if err := db.SetInitialSyncFinished("t1", models.InitialSyncFailed, time.Now(), "catalog push: unauthorized"); err != nil {
		t.Fatalf("SetInitialSyncFinished failed: %v", err)
	}

	got, err := db.GetConfiguration("t1")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got.InitialSyncStatus != models.InitialSyncFailed {
		t.Errorf("status = %q, want failed", got.InitialSyncStatus)
	}
	if got.InitialSyncError != "catalog push: unauthorized" {
		t.Errorf("error = %q", got.InitialSyncError)
	}
}

func TestSetDefaultLocation(t *testing.T) {
	db := newTestDB(t)

	if err := db.UpsertConfiguration(&models.Configuration{TenantID: "t1"}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}
	if err := db.SetDefaultLocation("t1", "LOC_MAIN"); err != nil {
		t.Fatalf("SetDefaultLocation failed: %v", err)
	}

	got, err := db.GetConfiguration("t1")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got.DefaultLocationID != "LOC_MAIN" {
		t.Errorf("default location = %q, want LOC_MAIN", got.DefaultLocationID)
	}
}

func TestSetDefaultLocation_FreshTenant(t *testing.T) {
	db := newTestDB(t)

	// No configuration row yet; the location set creates one with defaults.
	if err := db.SetDefaultLocation("t-new", "LOC_2"); err != nil {
		t.Fatalf("SetDefaultLocation failed: %v", err)
	}

	got, err := db.GetConfiguration("t-new")
	if err != nil {
		t.Fatalf("GetConfiguration failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected configuration row to be created")
	}
	if got.DefaultLocationID != "LOC_2" {
		t.Errorf("default location = %q, want LOC_2", got.DefaultLocationID)
	}
	if got.SyncQueueBatchSize != 10 {
		t.Errorf("batch size = %d, want schema default 10", got.SyncQueueBatchSize)
	}
}

package mapper

import (
	"testing"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
)

func newTestMapper(t *testing.T) (*Mapper, *db.DB) {
	t.Helper()
	database, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database, nil), database
}

func TestFindOrCreate_CreatesOnce(t *testing.T) {
	m, _ := newTestMapper(t)

	first, err := m.FindOrCreate("t1", models.EntityDish, "dsh-1", "OBJ1", "")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("mapping has no id")
	}
	if first.SyncDirection != models.DirectionLocalToRemote {
		t.Errorf("new mapping direction = %q, want local_to_remote", first.SyncDirection)
	}

	// Same pair again returns the same row.
	second, err := m.FindOrCreate("t1", models.EntityDish, "dsh-1", "OBJ1", "")
	if err != nil {
		t.Fatalf("second FindOrCreate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("FindOrCreate created a second mapping: %s vs %s", second.ID, first.ID)
	}

	count, err := m.Count("t1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("mapping count = %d, want 1", count)
	}
}

func TestFindOrCreate_ResolvesByEitherSide(t *testing.T) {
	m, _ := newTestMapper(t)

	created, err := m.FindOrCreate("t1", models.EntityEmployee, "emp-1", "TM_1", "")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	// Lookup by remote id with an unknown local id still finds the row.
	byRemote, err := m.FindOrCreate("t1", models.EntityEmployee, "emp-unknown", "TM_1", "")
	if err != nil {
		t.Fatalf("FindOrCreate by remote failed: %v", err)
	}
	if byRemote.ID != created.ID {
		t.Errorf("expected existing mapping %s, got %s", created.ID, byRemote.ID)
	}
	if byRemote.LocalID != "emp-1" {
		t.Errorf("mapping local id = %q, want emp-1", byRemote.LocalID)
	}
}

func TestCreate_Validation(t *testing.T) {
	m, _ := newTestMapper(t)

	err := m.Create(&models.Mapping{TenantID: "t1", EntityType: models.EntityDish, LocalID: "dsh-1"})
	if err == nil {
		t.Error("Create without remote id should fail")
	}
	err = m.Create(&models.Mapping{EntityType: models.EntityDish, LocalID: "dsh-1", RemoteID: "R1"})
	if err == nil {
		t.Error("Create without tenant should fail")
	}
}

func TestResolveConflict_Directions(t *testing.T) {
	m, database := newTestMapper(t)

	mapping, err := m.FindOrCreate("t1", models.EntityDish, "dsh-1", "OBJ1", "")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	if err := m.ResolveConflict(mapping.ID, ResolveRemoteWins); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	got, err := database.GetMapping(mapping.ID)
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.SyncDirection != models.DirectionRemoteToLocal {
		t.Errorf("direction after remote_wins = %q", got.SyncDirection)
	}
	if got.SyncMetadata["conflict_resolution"] != "remote_wins" {
		t.Errorf("metadata = %v", got.SyncMetadata)
	}
	if got.SyncMetadata["conflict_resolved_at"] == "" {
		t.Error("conflict_resolved_at not stamped")
	}

	if err := m.ResolveConflict(mapping.ID, ResolveLocalWins); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	got, _ = database.GetMapping(mapping.ID)
	if got.SyncDirection != models.DirectionLocalToRemote {
		t.Errorf("direction after local_wins = %q", got.SyncDirection)
	}
}

func TestResolveConflict_ManualKeepsDirection(t *testing.T) {
	m, database := newTestMapper(t)

	mapping := &models.Mapping{
		TenantID:      "t1",
		EntityType:    models.EntityDish,
		LocalID:       "dsh-1",
		RemoteID:      "OBJ1",
		SyncDirection: models.DirectionBidirectional,
	}
	if err := m.Create(mapping); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.ResolveConflict(mapping.ID, ResolveManual); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}

	got, err := database.GetMapping(mapping.ID)
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.SyncDirection != models.DirectionBidirectional {
		t.Errorf("manual resolution changed direction to %q", got.SyncDirection)
	}
	if got.SyncMetadata["conflict_resolution"] != "manual" {
		t.Errorf("metadata = %v", got.SyncMetadata)
	}
}

func TestResolveConflict_Unknown(t *testing.T) {
	m, _ := newTestMapper(t)

	mapping, err := m.FindOrCreate("t1", models.EntityDish, "dsh-1", "OBJ1", "")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if err := m.ResolveConflict(mapping.ID, "coin_flip"); err == nil {
		t.Error("unknown resolution should fail")
	}
}

func TestTouchSynced(t *testing.T) {
	m, database := newTestMapper(t)

	mapping, err := m.FindOrCreate("t1", models.EntityDish, "dsh-1", "OBJ1", "")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	if err := m.TouchSynced(mapping.ID, models.DirectionLocalToRemote); err != nil {
		t.Fatalf("TouchSynced failed: %v", err)
	}

	got, err := database.GetMapping(mapping.ID)
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.LastSyncedToRemote == nil {
		t.Error("last_synced_to_remote not set")
	}
	if got.LastSyncedFromRemote != nil {
		t.Error("last_synced_from_remote set for a push-only sync")
	}
}

package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

func waitTicket(t *testing.T, ticket *Ticket) error {
	t.Helper()
	select {
	case <-ticket.Done():
		return ticket.Err()
	case <-time.After(5 * time.Second):
		t.Fatal("ticket never completed")
		return nil
	}
}

func TestQueue_FlushPushesDish(t *testing.T) {
	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	dish := &models.Dish{TenantID: "t1", Name: "Ramen", SellingPrice: 18.00}
	if err := database.CreateDish(dish); err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}

	ticket, err := q.Enqueue(Item{
		TenantID:   "t1",
		EntityType: models.EntityDish,
		EntityID:   dish.ID,
		Operation:  models.OpCreate,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Flush()
	if err := waitTicket(t, ticket); err != nil {
		t.Fatalf("ticket error: %v", err)
	}
	if pos.upserts != 1 {
		t.Errorf("upserts = %d, want 1", pos.upserts)
	}

	mapping, _ := svc.Mapper().GetByLocalID("t1", models.EntityDish, dish.ID)
	if mapping == nil {
		t.Error("no mapping after queued push")
	}
}

func TestQueue_CoalescesDuplicates(t *testing.T) {
	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	dish := &models.Dish{TenantID: "t1", Name: "Udon", SellingPrice: 15.00}
	if err := database.CreateDish(dish); err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}

	item := Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: dish.ID, Operation: models.OpUpdate}
	first, err := q.Enqueue(item)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := q.Enqueue(item)
	if err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if first != second {
		t.Error("duplicate enqueue should coalesce onto the same ticket")
	}

	pending, _, _ := q.Status()
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	q.Flush()
	if err := waitTicket(t, first); err != nil {
		t.Fatalf("ticket error: %v", err)
	}
	if pos.upserts != 1 {
		t.Errorf("upserts = %d, want 1", pos.upserts)
	}
}

func TestQueue_DeleteFailsFast(t *testing.T) {
	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	ticket, err := q.Enqueue(Item{
		TenantID:   "t1",
		EntityType: models.EntityDish,
		EntityID:   "dsh-1",
		Operation:  models.OpDelete,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Flush()
	if err := waitTicket(t, ticket); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("ticket error = %v, want ErrNotImplemented", err)
	}
	if pos.upserts != 0 {
		t.Errorf("delete reached the POS: %d upserts", pos.upserts)
	}

	// Deletes fail terminally on the first attempt, with no retry row.
	entries, err := database.GetSyncHistory("t1", 10, "", models.SyncStatusError)
	if err != nil {
		t.Fatalf("GetSyncHistory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].RetryCount != 0 {
		t.Errorf("error log rows = %+v, want one with no retries", entries)
	}
}

func TestQueue_RetriesTransientThenSucceeds(t *testing.T) {
	oldDelay := retryBaseDelay
	retryBaseDelay = 10 * time.Millisecond
	defer func() { retryBaseDelay = oldDelay }()

	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	dish := &models.Dish{TenantID: "t1", Name: "Pho", SellingPrice: 17.00}
	if err := database.CreateDish(dish); err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}
	pos.failNext(errors.New("connection reset"))

	ticket, err := q.Enqueue(Item{
		TenantID:   "t1",
		EntityType: models.EntityDish,
		EntityID:   dish.ID,
		Operation:  models.OpCreate,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Flush()
	if err := waitTicket(t, ticket); err != nil {
		t.Fatalf("ticket error after retry: %v", err)
	}
	if pos.upserts != 1 {
		t.Errorf("upserts = %d, want 1", pos.upserts)
	}
}

func TestQueue_ExhaustsRetries(t *testing.T) {
	oldDelay := retryBaseDelay
	retryBaseDelay = 10 * time.Millisecond
	defer func() { retryBaseDelay = oldDelay }()

	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	dish := &models.Dish{TenantID: "t1", Name: "Bao", SellingPrice: 6.00}
	if err := database.CreateDish(dish); err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}
	pos.failNext(
		errors.New("connection reset"),
		errors.New("connection reset"),
		errors.New("connection reset"),
	)

	ticket, err := q.Enqueue(Item{
		TenantID:   "t1",
		EntityType: models.EntityDish,
		EntityID:   dish.ID,
		Operation:  models.OpCreate,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Flush()
	if err := waitTicket(t, ticket); err == nil {
		t.Fatal("ticket should carry the terminal error")
	}

	// The retry row ends up in a terminal error state.
	entries, err := database.GetSyncHistory("t1", 10, "", models.SyncStatusError)
	if err != nil {
		t.Fatalf("GetSyncHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("error log rows = %d, want 1", len(entries))
	}
	if entries[0].RetryCount != defaultMaxRetries {
		t.Errorf("retry count = %d, want %d", entries[0].RetryCount, defaultMaxRetries)
	}
	pending, err := database.GetPendingRetries("t1")
	if err != nil {
		t.Fatalf("GetPendingRetries failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending retries = %d, want 0 after exhaustion", len(pending))
	}
}

func TestQueue_TerminalErrorNoRetry(t *testing.T) {
	svc, pos, database := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	dish := &models.Dish{TenantID: "t1", Name: "Dumplings", SellingPrice: 12.00}
	if err := database.CreateDish(dish); err != nil {
		t.Fatalf("CreateDish failed: %v", err)
	}
	pos.failNext(posclient.ErrUnauthorized)

	ticket, err := q.Enqueue(Item{
		TenantID:   "t1",
		EntityType: models.EntityDish,
		EntityID:   dish.ID,
		Operation:  models.OpCreate,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Flush()
	if err := waitTicket(t, ticket); !errors.Is(err, posclient.ErrUnauthorized) {
		t.Fatalf("ticket error = %v, want ErrUnauthorized", err)
	}
	if pos.upserts != 0 {
		t.Errorf("upserts = %d, want 0", pos.upserts)
	}
	pending, err := database.GetPendingRetries("t1")
	if err != nil {
		t.Fatalf("GetPendingRetries failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("terminal error scheduled a retry: %d pending", len(pending))
	}
}

func TestQueue_BatchSizeFromConfig(t *testing.T) {
	svc, _, database := newTestService(t)
	if err := database.UpsertConfiguration(&models.Configuration{
		TenantID:           "t1",
		SyncQueueBatchSize: 2,
		SyncDebounceMs:     50,
	}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	q := NewQueue(svc, nil)
	defer q.Close()

	var tickets []*Ticket
	for i := 0; i < 5; i++ {
		dish := &models.Dish{TenantID: "t1", Name: "Dish", SellingPrice: 10}
		if err := database.CreateDish(dish); err != nil {
			t.Fatalf("CreateDish failed: %v", err)
		}
		ticket, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: dish.ID, Operation: models.OpCreate})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		tickets = append(tickets, ticket)
	}

	q.Flush()
	for _, ticket := range tickets {
		if err := waitTicket(t, ticket); err != nil {
			t.Fatalf("ticket error: %v", err)
		}
	}
}

func TestQueue_PacesBatchesByDebounce(t *testing.T) {
	svc, pos, database := newTestService(t)
	if err := database.UpsertConfiguration(&models.Configuration{
		TenantID:           "t1",
		SyncQueueBatchSize: 10,
		SyncDebounceMs:     500,
	}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	q := NewQueue(svc, nil)
	defer q.Close()

	var tickets []*Ticket
	for i := 0; i < 15; i++ {
		dish := &models.Dish{TenantID: "t1", Name: "Dish", SellingPrice: 10}
		if err := database.CreateDish(dish); err != nil {
			t.Fatalf("CreateDish failed: %v", err)
		}
		ticket, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: dish.ID, Operation: models.OpCreate})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		tickets = append(tickets, ticket)
	}

	// One debounce window in, exactly one batch has gone out; the second
	// waits a further debounce.
	time.Sleep(750 * time.Millisecond)
	if got := pos.upsertCount(); got != 10 {
		t.Errorf("after first batch upserts = %d, want 10", got)
	}

	for _, ticket := range tickets {
		if err := waitTicket(t, ticket); err != nil {
			t.Fatalf("ticket error: %v", err)
		}
	}
	if got := pos.upsertCount(); got != 15 {
		t.Errorf("final upserts = %d, want 15", got)
	}
}

func TestQueue_AutoEnqueueRespectsConfig(t *testing.T) {
	svc, _, database := newTestService(t)
	if err := database.UpsertConfiguration(&models.Configuration{
		TenantID:        "t1",
		AutoSyncEnabled: true,
		AutoSyncDishes:  true,
		AutoSyncStaff:   false,
		SyncDebounceMs:  60000,
	}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	q := NewQueue(svc, nil)
	defer q.Close()

	ticket, err := q.AutoEnqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "dsh-1", Operation: models.OpUpdate})
	if err != nil {
		t.Fatalf("AutoEnqueue dish failed: %v", err)
	}
	if ticket == nil {
		t.Error("dish mutation should enqueue when auto sync dishes is on")
	}

	ticket, err = q.AutoEnqueue(Item{TenantID: "t1", EntityType: models.EntityEmployee, EntityID: "emp-1", Operation: models.OpUpdate})
	if err != nil {
		t.Fatalf("AutoEnqueue employee failed: %v", err)
	}
	if ticket != nil {
		t.Error("staff mutation should be gated off")
	}

	if pending, _, _ := q.Status(); pending != 1 {
		t.Errorf("pending = %d, want only the dish item", pending)
	}
}

func TestQueue_AutoEnqueueDisabledTenant(t *testing.T) {
	svc, _, database := newTestService(t)
	if err := database.UpsertConfiguration(&models.Configuration{
		TenantID:        "t1",
		AutoSyncEnabled: false,
	}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	q := NewQueue(svc, nil)
	defer q.Close()

	ticket, err := q.AutoEnqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "dsh-1", Operation: models.OpUpdate})
	if err != nil {
		t.Fatalf("AutoEnqueue failed: %v", err)
	}
	if ticket != nil {
		t.Error("auto sync disabled tenants should never enqueue")
	}
	if pending, _, _ := q.Status(); pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func TestQueue_ClearFailsTickets(t *testing.T) {
	svc, _, _ := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	ticket, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "dsh-1", Operation: models.OpCreate})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	q.Clear()

	if err := waitTicket(t, ticket); !errors.Is(err, ErrQueueCleared) {
		t.Fatalf("ticket error = %v, want ErrQueueCleared", err)
	}
	pending, _, _ := q.Status()
	if pending != 0 {
		t.Errorf("pending after clear = %d", pending)
	}
}

func TestQueue_HighPriorityFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	q := NewQueue(svc, nil)
	defer q.Close()

	if _, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "a", Operation: models.OpUpdate}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "b", Operation: models.OpUpdate, Priority: models.PriorityHigh}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.mu.Lock()
	head := q.items[0].EntityID
	q.mu.Unlock()
	if head != "b" {
		t.Errorf("queue head = %s, want high-priority item", head)
	}
	q.Clear()
}

func TestQueue_StatusReportsNextBatch(t *testing.T) {
	svc, _, database := newTestService(t)
	if err := database.UpsertConfiguration(&models.Configuration{
		TenantID:       "t1",
		SyncDebounceMs: 60000,
	}); err != nil {
		t.Fatalf("UpsertConfiguration failed: %v", err)
	}

	q := NewQueue(svc, nil)
	defer q.Close()

	if _, _, next := q.Status(); !next.IsZero() {
		t.Errorf("idle queue next batch = %v, want zero", next)
	}

	before := time.Now()
	if _, err := q.Enqueue(Item{TenantID: "t1", EntityType: models.EntityDish, EntityID: "dsh-1", Operation: models.OpUpdate}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	_, _, next := q.Status()
	if next.Before(before.Add(time.Minute)) || next.After(before.Add(61*time.Second)) {
		t.Errorf("next batch = %v, want one debounce window out from %v", next, before)
	}

	q.Clear()
	if _, _, next := q.Status(); !next.IsZero() {
		t.Errorf("cleared queue next batch = %v, want zero", next)
	}
}

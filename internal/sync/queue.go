package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

const (
	defaultMaxRetries = 3
	defaultBatchSize  = 10
	defaultDebounce   = time.Second
)

// retryBaseDelay scales linearly with the attempt number. Variable so tests
// can shrink it.
var retryBaseDelay = 5 * time.Second

// ErrNotImplemented marks operations the engine deliberately refuses, such
// as propagating deletes. Failing fast beats guessing at destructive
// semantics.
var ErrNotImplemented = errors.New("operation not implemented")

// ErrQueueCleared is returned through tickets whose work was dropped by
// Clear or Close.
var ErrQueueCleared = errors.New("queue cleared")

// Item is one unit of pending sync work.
type Item struct {
	TenantID   string
	EntityType models.EntityType
	EntityID   string
	Operation  models.QueueOperation
	Priority   models.Priority
	EnqueuedAt time.Time

	retries int
	logID   int64
	ticket  *Ticket
}

func (it *Item) key() string {
	return fmt.Sprintf("%s/%s/%s/%s", it.TenantID, it.EntityType, it.EntityID, it.Operation)
}

// Ticket lets a caller wait for a queued item to reach a terminal state.
type Ticket struct {
	done chan struct{}
	err  error
}

// Done is closed when the item has succeeded, exhausted its retries, or
// failed terminally.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal error. Only valid after Done is closed.
func (t *Ticket) Err() error {
	return t.err
}

func (t *Ticket) finish(err error) {
	t.err = err
	close(t.done)
}

// Queue batches sync work per tenant, debounces bursts of changes, and
// retries transient failures with a linear backoff. Retry state lives in
// memory; the sync_log retry columns are bookkeeping for inspection, the
// queue itself is the only retry executor.
type Queue struct {
	svc    *Service
	logger *slog.Logger

	mu       sync.Mutex
	items    []*Item
	pending  map[string]*Item
	timer    *time.Timer
	nextAt   time.Time
	draining bool
	closed   bool

	inflight sync.WaitGroup
}

// NewQueue builds a queue over the given service.
func NewQueue(svc *Service, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		svc:     svc,
		logger:  logger,
		pending: make(map[string]*Item),
	}
}

// Enqueue adds an item and schedules a flush after the tenant's debounce
// window. Enqueueing the same entity and operation again before the flush
// coalesces onto the existing item and returns its ticket.
func (q *Queue) Enqueue(item Item) (*Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, errors.New("queue is closed")
	}

	if existing, ok := q.pending[item.key()]; ok {
		return existing.ticket, nil
	}

	it := item
	it.EnqueuedAt = time.Now()
	it.ticket = &Ticket{done: make(chan struct{})}
	if it.Priority == models.PriorityHigh {
		q.items = append([]*Item{&it}, q.items...)
	} else {
		q.items = append(q.items, &it)
	}
	q.pending[it.key()] = &it

	q.scheduleLocked(q.debounce(it.TenantID))
	return it.ticket, nil
}

// AutoEnqueue enqueues the item only when the tenant's configuration has
// auto sync turned on for its entity type. Returns a nil ticket when the
// mutation is gated off.
func (q *Queue) AutoEnqueue(item Item) (*Ticket, error) {
	cfg, err := q.svc.config(item.TenantID)
	if err != nil {
		return nil, err
	}
	if !cfg.AutoSyncEnabled {
		return nil, nil
	}
	switch item.EntityType {
	case models.EntityDish:
		if !cfg.AutoSyncDishes {
			return nil, nil
		}
	case models.EntityEmployee:
		if !cfg.AutoSyncStaff {
			return nil, nil
		}
	case models.EntityIngredient, models.EntityRecipe:
		if !cfg.AutoSyncCosts {
			return nil, nil
		}
	}
	return q.Enqueue(item)
}

// Flush drains the queue immediately, batch by batch, and blocks until all
// work (including retries already due) has been dispatched once.
func (q *Queue) Flush() {
	for {
		if !q.drainBatch() {
			break
		}
	}
	q.inflight.Wait()
}

// Status reports the queue's depth, whether a batch is in flight, and when
// the next batch becomes eligible to run. nextBatch is zero while no flush
// is armed.
func (q *Queue) Status() (pending int, draining bool, nextBatch time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), q.draining, q.nextAt
}

// Clear drops all pending items. Their tickets fail with ErrQueueCleared.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := q.items
	q.items = nil
	q.pending = make(map[string]*Item)
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
		q.nextAt = time.Time{}
	}
	q.mu.Unlock()

	for _, it := range dropped {
		it.ticket.finish(ErrQueueCleared)
	}
}

// Close stops the queue, drops pending work, and waits for in-flight
// batches to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Clear()
	q.inflight.Wait()
}

func (q *Queue) debounce(tenantID string) time.Duration {
	cfg, err := q.svc.config(tenantID)
	if err != nil || cfg.SyncDebounceMs <= 0 {
		return defaultDebounce
	}
	return time.Duration(cfg.SyncDebounceMs) * time.Millisecond
}

func (q *Queue) batchSize(tenantID string) int {
	cfg, err := q.svc.config(tenantID)
	if err != nil || cfg.SyncQueueBatchSize <= 0 {
		return defaultBatchSize
	}
	return cfg.SyncQueueBatchSize
}

// scheduleLocked arms the flush timer. Callers hold q.mu.
func (q *Queue) scheduleLocked(after time.Duration) {
	if q.timer != nil {
		return
	}
	q.nextAt = time.Now().Add(after)
	q.timer = time.AfterFunc(after, func() {
		q.mu.Lock()
		q.timer = nil
		q.nextAt = time.Time{}
		q.mu.Unlock()
		if q.drainBatch() {
			// Pace successive batches by the tenant's debounce so a
			// long backlog cannot hammer the POS.
			q.mu.Lock()
			if len(q.items) > 0 {
				q.scheduleLocked(q.debounce(q.items[0].TenantID))
			}
			q.mu.Unlock()
		}
	})
}

// drainBatch takes one batch off the queue and processes its items
// concurrently. Returns false when the queue was empty or already draining.
func (q *Queue) drainBatch() bool {
	q.mu.Lock()
	if q.draining || len(q.items) == 0 {
		q.mu.Unlock()
		return false
	}
	q.draining = true

	n := q.batchSize(q.items[0].TenantID)
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n]
	q.items = q.items[n:]
	for _, it := range batch {
		delete(q.pending, it.key())
	}
	q.mu.Unlock()

	var wg sync.WaitGroup
	for _, it := range batch {
		wg.Add(1)
		q.inflight.Add(1)
		go func(it *Item) {
			defer wg.Done()
			defer q.inflight.Done()
			q.process(it)
		}(it)
	}
	wg.Wait()

	q.mu.Lock()
	q.draining = false
	q.mu.Unlock()
	return true
}

func (q *Queue) process(it *Item) {
	err := q.dispatch(it)
	if err == nil {
		it.ticket.finish(nil)
		return
	}

	if errors.Is(err, ErrNotImplemented) || !posclient.IsTransient(err) {
		q.logger.Warn("queue item failed terminally",
			"tenant", it.TenantID, "entity", it.EntityID, "op", it.Operation, "error", err)
		q.auditTerminal(it, err)
		it.ticket.finish(err)
		return
	}

	it.retries++
	if it.retries >= defaultMaxRetries {
		q.logger.Error("queue item exhausted retries",
			"tenant", it.TenantID, "entity", it.EntityID, "op", it.Operation, "retries", it.retries, "error", err)
		q.auditTerminal(it, fmt.Errorf("after %d attempts: %w", it.retries, err))
		it.ticket.finish(err)
		return
	}

	delay := retryBaseDelay * time.Duration(it.retries)
	q.auditRetry(it, err, time.Now().Add(delay))
	q.logger.Info("queue item scheduled for retry",
		"tenant", it.TenantID, "entity", it.EntityID, "op", it.Operation, "attempt", it.retries, "delay", delay)

	time.AfterFunc(delay, func() {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			it.ticket.finish(ErrQueueCleared)
			return
		}
		// Requeue at the tail so fresh work is not starved.
		q.items = append(q.items, it)
		q.pending[it.key()] = it
		q.scheduleLocked(0)
		q.mu.Unlock()
	})
}

// dispatch routes an item to the reconciler that owns its entity type.
func (q *Queue) dispatch(it *Item) error {
	if it.Operation == models.OpDelete {
		return fmt.Errorf("%s delete: %w", it.EntityType, ErrNotImplemented)
	}

	switch it.EntityType {
	case models.EntityDish:
		_, err := q.svc.PushDish(it.TenantID, it.EntityID)
		return err
	case models.EntityEmployee:
		_, err := q.svc.PushEmployee(it.TenantID, it.EntityID)
		return err
	case models.EntityIngredient:
		res, err := q.svc.RecostDishesUsingIngredient(it.TenantID, it.EntityID)
		if err != nil {
			return err
		}
		if res.Errors > 0 {
			return fmt.Errorf("recost hit %d errors: %s", res.Errors, res.Warnings[0])
		}
		return nil
	case models.EntityRecipe:
		// Recipe items carry the dish they belong to.
		_, err := q.svc.RecostDish(it.TenantID, it.EntityID)
		return err
	default:
		return fmt.Errorf("entity type %s: %w", it.EntityType, ErrNotImplemented)
	}
}

// auditRetry records or advances the retry bookkeeping on the item's
// sync_log row.
func (q *Queue) auditRetry(it *Item, cause error, nextRetry time.Time) {
	if it.logID == 0 {
		entry := &models.SyncLogEntry{
			TenantID:      it.TenantID,
			OperationType: operationFor(it.EntityType),
			Direction:     models.DirectionLocalToRemote,
			EntityType:    it.EntityType,
			EntityID:      it.EntityID,
			Status:        models.SyncStatusRetrying,
			ErrorMessage:  cause.Error(),
			RetryCount:    it.retries,
			MaxRetries:    defaultMaxRetries,
			NextRetryAt:   &nextRetry,
		}
		if err := q.svc.db.RecordSyncLog(entry); err != nil {
			q.logger.Error("record retry log", "error", err)
			return
		}
		it.logID = entry.ID
		return
	}
	if err := q.svc.db.UpdateRetryInfo(it.logID, it.retries, &nextRetry, models.SyncStatusRetrying); err != nil {
		q.logger.Error("update retry log", "log_id", it.logID, "error", err)
	}
}

// auditTerminal records the item's final failure.
func (q *Queue) auditTerminal(it *Item, cause error) {
	if it.logID != 0 {
		if err := q.svc.db.UpdateRetryInfo(it.logID, it.retries, nil, models.SyncStatusError); err != nil {
			q.logger.Error("finalize retry log", "log_id", it.logID, "error", err)
		}
		return
	}
	q.svc.audit(&models.SyncLogEntry{
		TenantID:      it.TenantID,
		OperationType: operationFor(it.EntityType),
		Direction:     models.DirectionLocalToRemote,
		EntityType:    it.EntityType,
		EntityID:      it.EntityID,
		Status:        models.SyncStatusError,
		ErrorMessage:  cause.Error(),
		RetryCount:    it.retries,
		MaxRetries:    defaultMaxRetries,
	})
}

func operationFor(entityType models.EntityType) models.OperationType {
	switch entityType {
	case models.EntityEmployee:
		return models.OpSyncStaff
	case models.EntityIngredient, models.EntityRecipe:
		return models.OpSyncCosts
	default:
		return models.OpSyncCatalog
	}
}

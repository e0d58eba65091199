package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notifier accepts notification plans for asynchronous delivery.
type Notifier interface {
	Enqueue(plan NotificationPlan) bool
}

// NotificationQueue runs plans through the dispatcher on a fixed pool of
// workers. Deliveries are not tied to the request that resolved the report.
type NotificationQueue struct {
	dispatcher  *Dispatcher
	plans       chan NotificationPlan
	workers     int
	planTimeout time.Duration
	metrics     *Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewNotificationQueue(dispatcher *Dispatcher, workers, size int, metrics *Metrics) *NotificationQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	return &NotificationQueue{
		dispatcher:  dispatcher,
		plans:       make(chan NotificationPlan, size),
		workers:     workers,
		planTimeout: 30 * time.Second,
		metrics:     metrics,
	}
}

func (q *NotificationQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	slog.Info("notification queue started", "workers", q.workers, "capacity", cap(q.plans))
}

func (q *NotificationQueue) work() {
	defer q.wg.Done()
	for plan := range q.plans {
		q.metrics.setQueueDepth(len(q.plans))
		ctx, cancel := context.WithTimeout(context.Background(), q.planTimeout)
		q.dispatcher.Dispatch(ctx, plan)
		cancel()
	}
}

// Enqueue never blocks. A plan that does not fit is recorded as failed and
// false is returned.
func (q *NotificationQueue) Enqueue(plan NotificationPlan) bool {
	reason := reasonQueueClosed
	q.mu.RLock()
	if !q.closed {
		select {
		case q.plans <- plan:
			q.metrics.setQueueDepth(len(q.plans))
			q.mu.RUnlock()
			return true
		default:
			reason = reasonQueueFull
		}
	}
	q.mu.RUnlock()

	q.metrics.planDropped()
	slog.Error("notification plan dropped", "report_id", plan.ReportID.String(), "reason", reason)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.dispatcher.Fail(ctx, plan, reason)
	return false
}

// Stop closes the queue and waits for queued plans to drain or ctx to end.
func (q *NotificationQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.plans)
	started := q.started
	q.mu.Unlock()

	if !started {
		for plan := range q.plans {
			q.metrics.planDropped()
			q.dispatcher.Fail(ctx, plan, reasonQueueClosed)
		}
		q.metrics.setQueueDepth(0)
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("notification queue drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

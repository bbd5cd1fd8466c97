package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of operations kept while disconnected.
const DefaultCapacity = 50

// Action is a deferred outbound operation.
type Action func(ctx context.Context) error

// Operation is a queued action.
type Operation struct {
	ID         uuid.UUID
	Action     Action
	EnqueuedAt time.Time
}

// Queue is a thread-safe bounded FIFO ring. When full, Enqueue evicts the
// oldest entry.
type Queue struct {
	logger *slog.Logger

	mu       sync.Mutex
	buf      []Operation
	head     int // read position
	tail     int // write position
	count    int
	capacity int

	// Stats
	totalEnqueued int64
	totalEvicted  int64
	totalExecuted int64
	totalFailed   int64
}

// New creates a queue holding at most capacity operations.
func New(capacity int, logger *slog.Logger) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		logger:   logger,
		buf:      make([]Operation, capacity),
		capacity: capacity,
	}
}

// Enqueue appends an action and returns the stored operation.
func (q *Queue) Enqueue(action Action) Operation {
	op := Operation{
		ID:         uuid.New(),
		Action:     action,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	var evicted Operation
	didEvict := false
	if q.count == q.capacity {
		evicted = q.popLocked()
		didEvict = true
		q.totalEvicted++
	}

	q.buf[q.tail] = op
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalEnqueued++
	q.mu.Unlock()

	if didEvict {
		q.logger.Warn("operation queue full, evicted oldest",
			"evicted_id", evicted.ID,
			"evicted_age", op.EnqueuedAt.Sub(evicted.EnqueuedAt),
			"capacity", q.capacity,
		)
	}
	return op
}

// Drain removes and returns every queued operation in FIFO order.
// Returns nil if the queue is empty.
func (q *Queue) Drain() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	result := make([]Operation, q.count)
	for i := range result {
		result[i] = q.popLocked()
	}
	return result
}

// Requeue puts ops back at the head in their original order, ahead of
// anything enqueued since they were drained. When that overflows capacity the
// oldest of ops are evicted.
func (q *Queue) Requeue(ops []Operation) {
	if len(ops) == 0 {
		return
	}

	q.mu.Lock()
	evicted := 0
	for i := len(ops) - 1; i >= 0; i-- {
		if q.count == q.capacity {
			evicted = i + 1
			break
		}
		q.head = (q.head - 1 + q.capacity) % q.capacity
		q.buf[q.head] = ops[i]
		q.count++
	}
	q.totalEvicted += int64(evicted)
	q.mu.Unlock()

	if evicted > 0 {
		q.logger.Warn("operation queue full, evicted requeued operations",
			"evicted", evicted,
			"capacity", q.capacity,
		)
	}
}

// Execute runs ops in order. A failing or panicking operation is logged and
// the rest still run. Returns the number of operations that failed.
func (q *Queue) Execute(ctx context.Context, ops []Operation) int {
	failed := 0
	for _, op := range ops {
		if err := q.run(ctx, op); err != nil {
			failed++
			q.logger.Error("queued operation failed",
				"id", op.ID,
				"age", time.Since(op.EnqueuedAt),
				"error", err,
			)
		}
	}

	q.mu.Lock()
	q.totalExecuted += int64(len(ops) - failed)
	q.totalFailed += int64(failed)
	q.mu.Unlock()

	return failed
}

// Flush drains the queue and executes everything that was in it.
// Operations enqueued while flushing are left for the next flush.
func (q *Queue) Flush(ctx context.Context) int {
	ops := q.Drain()
	if len(ops) == 0 {
		return 0
	}
	q.logger.Debug("flushing operation queue", "count", len(ops))
	return q.Execute(ctx, ops)
}

func (q *Queue) run(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if op.Action == nil {
		return nil
	}
	return op.Action(ctx)
}

// popLocked removes the head entry. Must be called with lock held and count > 0.
func (q *Queue) popLocked() Operation {
	op := q.buf[q.head]
	q.buf[q.head] = Operation{} // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	return op
}

// Len returns the current number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:         q.count,
		Capacity:      q.capacity,
		TotalEnqueued: q.totalEnqueued,
		TotalEvicted:  q.totalEvicted,
		TotalExecuted: q.totalExecuted,
		TotalFailed:   q.totalFailed,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Count         int   `json:"count"`
	Capacity      int   `json:"capacity"`
	TotalEnqueued int64 `json:"total_enqueued"`
	TotalEvicted  int64 `json:"total_evicted"`
	TotalExecuted int64 `json:"total_executed"`
	TotalFailed   int64 `json:"total_failed"`
}

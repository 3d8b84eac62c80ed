package workflow

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueClosed is returned once the queue has been shut down.
	ErrQueueClosed = errors.New("processing queue closed")
	// ErrQueueFull is returned by Enqueue when a depth cap is configured
	// and reached.
	ErrQueueFull = errors.New("processing queue full")
)

// Entry is one pending job request, existing only between enqueue and
// dequeue.
type Entry struct {
	Kind      string
	JobID     string
	InputPath string
	ModelID   string
}

// Queue is a FIFO of pending jobs with single-producer (the submit
// path), single-consumer (the worker loop) semantics. Enqueue never
// blocks; Dequeue suspends the consumer cooperatively until an entry
// arrives. Unbounded unless maxDepth is set.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	entries  []Entry
	closed   bool
	maxDepth int
}

// NewQueue creates a queue. maxDepth of zero means unbounded.
func NewQueue(maxDepth int) *Queue {
	q := &Queue{maxDepth: maxDepth}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an entry and wakes the consumer.
func (q *Queue) Enqueue(e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.maxDepth > 0 && len(q.entries) >= q.maxDepth {
		return ErrQueueFull
	}
	q.entries = append(q.entries, e)
	q.cond.Signal()
	return nil
}

// Dequeue blocks until an entry is available, the queue is closed, or
// ctx is done. Entries are delivered in strict enqueue order.
func (q *Queue) Dequeue(ctx context.Context) (Entry, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) == 0 {
		if q.closed {
			return Entry{}, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		q.cond.Wait()
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, nil
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close rejects further enqueues and wakes a blocked consumer. Entries
// already queued are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

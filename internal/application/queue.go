package application

import (
	"context"
	"sync"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/errors"
)

// priorityQueue hands out scan ids high before medium before low, FIFO within a level.
// Workflows resumed after waiting for their components go ahead of every level.
type priorityQueue struct {
	high     chan string
	medium   chan string
	low      chan string
	capacity int

	mu    sync.Mutex
	ready []string
	wake  chan struct{}
}

func newPriorityQueue(capacity int) *priorityQueue {
	return &priorityQueue{
		high:     make(chan string, capacity),
		medium:   make(chan string, capacity),
		low:      make(chan string, capacity),
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

func (q *priorityQueue) lane(p models.Priority) chan string {
	switch p {
	case models.PriorityHigh:
		return q.high
	case models.PriorityLow:
		return q.low
	default:
		return q.medium
	}
}

// push enqueues without blocking.
func (q *priorityQueue) push(p models.Priority, scanID string) error {
	select {
	case q.lane(p) <- scanID:
		return nil
	default:
		return errors.ErrQueueFull(q.capacity)
	}
}

// resume hands back a workflow that was already admitted once. It does not count
// against capacity.
func (q *priorityQueue) resume(scanID string) {
	q.mu.Lock()
	q.ready = append(q.ready, scanID)
	q.mu.Unlock()
	q.signal()
}

func (q *priorityQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *priorityQueue) takeReady() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return "", false
	}
	id := q.ready[0]
	q.ready = q.ready[1:]
	if len(q.ready) > 0 {
		// pass the wakeup on to another idle worker
		q.signal()
	}
	return id, true
}

// pop blocks until a scan id is available or ctx is done. Once ctx is done nothing
// more is handed out.
func (q *priorityQueue) pop(ctx context.Context) (string, bool) {
	for {
		if ctx.Err() != nil {
			return "", false
		}
		if id, ok := q.takeReady(); ok {
			return id, true
		}
		select {
		case id := <-q.high:
			return id, true
		default:
		}
		select {
		case id := <-q.high:
			return id, true
		case id := <-q.medium:
			return id, true
		default:
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-q.wake:
		case id := <-q.high:
			return id, true
		case id := <-q.medium:
			return id, true
		case id := <-q.low:
			return id, true
		}
	}
}

func (q *priorityQueue) depth() int {
	q.mu.Lock()
	ready := len(q.ready)
	q.mu.Unlock()
	return ready + len(q.high) + len(q.medium) + len(q.low)
}

// drain empties every lane without blocking.
func (q *priorityQueue) drain() []string {
	q.mu.Lock()
	out := q.ready
	q.ready = nil
	q.mu.Unlock()
	for _, lane := range []chan string{q.high, q.medium, q.low} {
		for {
			select {
			case id := <-lane:
				out = append(out, id)
				continue
			default:
			}
			break
		}
	}
	return out
}

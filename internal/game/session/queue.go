package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Queue routes events to a buffered channel, bridging the session to a
// consumer goroutine such as a presenter. Notify never blocks, so a Queue is
// safe to receive RollingTick.
type Queue struct {
	events  chan Event
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewQueue creates a Queue with the given buffer size.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Queue with an open events channel; bufferSize <= 0 selects 64.
func NewQueue(bufferSize int, logger *zap.Logger) *Queue {
	if logger == nil {
		panic("session: NewQueue precondition violated: logger must be non-nil")
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Queue{events: make(chan Event, bufferSize), logger: logger}
}

// Notify enqueues e. Dropped RollingTick events are logged at Debug, all
// other drops at Warn.
func (q *Queue) Notify(e Event) {
	err := q.Push(e)
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event", e.Kind.String()),
		zap.String("session", e.Session),
		zap.Uint64("roll", e.Roll),
		zap.Error(err),
	}
	if e.Kind == RollingTick {
		q.logger.Debug("event dropped", fields...)
		return
	}
	q.logger.Warn("event dropped", fields...)
}

// Push enqueues e.
//
// Postcondition: e is enqueued, or an error if the queue is closed or full.
func (q *Queue) Push(e Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue closed")
	}
	select {
	case q.events <- e:
		return nil
	default:
		q.dropped++
		return fmt.Errorf("queue full, dropped %s", e.Kind)
	}
}

// Events returns the read-only events channel.
func (q *Queue) Events() <-chan Event {
	return q.events
}

// Dropped returns how many events were discarded because the buffer was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close marks the queue as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.events)
	}
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// emitTimeout bounds how long Emit waits for a slow subscriber.
const emitTimeout = 100 * time.Millisecond

// EventEmitter delivers coordinator events to a single subscriber.
// A nil *EventEmitter discards everything.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       zerolog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger zerolog.Logger) *EventEmitter {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
		return
	default:
	}

	timer := time.NewTimer(emitTimeout)
	defer timer.Stop()
	select {
	case e.events <- event:
	case <-timer.C:
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.logger.Warn().
				Uint64("dropped", count).
				Str("type", string(event.Type)).
				Msg("event channel full, dropping event")
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	if e == nil {
		return 0
	}
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	if e == nil {
		return nil
	}
	return e.events
}

// Close closes the events channel. Emit after Close is a no-op.
func (e *EventEmitter) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.events)
		e.mu.Unlock()
	})
}

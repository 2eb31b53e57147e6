package collection

import (
	"sync"

	"github.com/roach88/tally/internal/arbiter"
	"github.com/roach88/tally/internal/record"
)

// eventType distinguishes between event kinds.
type eventType int

const (
	eventReload eventType = iota + 1
	eventFilterChanged
	eventReachBottom
	eventFetchDone
	eventEdit
	eventRevert
	eventSave
	eventSaveDone
	eventLookupDone
	eventBarrier
)

func (t eventType) String() string {
	switch t {
	case eventReload:
		return "reload"
	case eventFilterChanged:
		return "filter_changed"
	case eventReachBottom:
		return "reach_bottom"
	case eventFetchDone:
		return "fetch_done"
	case eventEdit:
		return "edit"
	case eventRevert:
		return "revert"
	case eventSave:
		return "save"
	case eventSaveDone:
		return "save_done"
	case eventLookupDone:
		return "lookup_done"
	case eventBarrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// event carries one trigger or one I/O completion into the loop.
// Only the fields relevant to typ are set.
type event struct {
	typ eventType

	index int

	ticket arbiter.Ticket
	offset int
	page   record.Page
	err    error

	id    string
	patch record.Patch
	mode  EditMode
	ids   []string

	saved []record.Record
	token arbiter.Token

	ref record.Reference

	done chan struct{}
}

// eventQueue is a thread-safe unbounded FIFO.
//
// Public controller methods and I/O goroutines enqueue; the Run loop
// dequeues. The signal channel lets Run wait with a context.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]

	// Release the slot so pages and patches can be collected.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// It is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

package collection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := 0; i < 3; i++ {
		require.True(t, q.Enqueue(event{typ: eventReachBottom, index: i}))
	}

	for i := 0; i < 3; i++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, e.index)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(event{typ: eventReload})

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("enqueue did not signal")
	}
}

func TestEventQueue_CloseWakesWaiters(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("close did not wake waiter")
	}
	assert.True(t, q.Closed())
	q.Close()
}

func TestEventQueue_EnqueueAfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	assert.False(t, q.Enqueue(event{typ: eventSave}), "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(event{typ: eventReload})
	q.Enqueue(event{typ: eventSave})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(event{typ: eventReachBottom, index: p*perProducer + i})
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		seen[e.index] = true
	}
	assert.Len(t, seen, producers*perProducer)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "filter_changed", eventFilterChanged.String())
	assert.Equal(t, "revert", eventRevert.String())
	assert.Equal(t, "unknown", eventType(0).String())
}

// Package activity provides the per-controller activity gate and the
// banner channel that turns failures and save confirmations into
// user-facing messages.
//
// Both are plain instances owned by one controller. Nothing here is a
// process-wide singleton, so two screens never see each other's spinners
// or errors.
package activity

import "sync"

// Gate is true while any tracked operation is in flight.
// Safe for concurrent use.
type Gate struct {
	mu     sync.Mutex
	active map[string]int
	count  int
	subs   []gateSub
	nextID int
}

type gateSub struct {
	id int
	fn func(busy bool)
}

// NewGate creates an idle gate.
func NewGate() *Gate {
	return &Gate{active: make(map[string]int)}
}

// Track marks an operation as in flight. The returned func ends it and is
// safe to call more than once.
func (g *Gate) Track(op string) (done func()) {
	g.mu.Lock()
	g.active[op]++
	g.count++
	subs := g.transitionLocked(g.count == 1)
	g.mu.Unlock()
	notify(subs, true)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.active[op]--
			if g.active[op] <= 0 {
				delete(g.active, op)
			}
			g.count--
			subs := g.transitionLocked(g.count == 0)
			g.mu.Unlock()
			notify(subs, false)
		})
	}
}

// Busy reports whether anything is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count > 0
}

// Active reports whether a named operation is in flight.
func (g *Gate) Active(op string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[op] > 0
}

// Subscribe registers fn for busy/idle transitions.
func (g *Gate) Subscribe(fn func(busy bool)) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := g.nextID
	g.subs = append(g.subs, gateSub{id: id, fn: fn})
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

func (g *Gate) transitionLocked(changed bool) []gateSub {
	if !changed || len(g.subs) == 0 {
		return nil
	}
	out := make([]gateSub, len(g.subs))
	copy(out, g.subs)
	return out
}

func notify(subs []gateSub, busy bool) {
	for _, s := range subs {
		s.fn(busy)
	}
}

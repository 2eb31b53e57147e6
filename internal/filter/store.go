package filter

import (
	"log/slog"
	"sync"
)

// Store holds the current Context and notifies subscribers on change.
//
// Set is safe from any goroutine. Subscribers are called synchronously,
// outside the lock, in subscription order. Notifications from concurrent
// Set calls may interleave, so a subscriber that must converge on the
// latest selection reads Current rather than the value it was handed.
type Store struct {
	mu      sync.Mutex
	current Context
	subs    []subscription
	nextID  int
	logger  *slog.Logger
}

type subscription struct {
	id int
	fn func(Context)
}

// NewStore creates a store holding initial.
func NewStore(initial Context) *Store {
	return &Store{current: initial.Clone(), logger: slog.Default()}
}

// Current returns the current context.
func (s *Store) Current() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Set applies p. It reports whether the context changed; an update that
// leaves the selection identical emits nothing.
func (s *Store) Set(p Partial) (Context, bool) {
	s.mu.Lock()
	next := p.Apply(s.current)
	if next.Equal(s.current) {
		s.mu.Unlock()
		return next, false
	}
	s.current = next
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.logger.Debug("filter changed",
		"table_type", next.TableType,
		"search", next.SearchText,
		"toggles", next.ActiveToggles(),
		"marketplace", next.Marketplace,
	)
	for _, sub := range subs {
		sub.fn(next.Clone())
	}
	return next, true
}

// Subscribe registers fn for future changes. The returned func removes it.
func (s *Store) Subscribe(fn func(Context)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

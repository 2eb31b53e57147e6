package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/tally/internal/record"
)

// FakeSaver records every save.
type FakeSaver struct {
	mu       sync.Mutex
	saves    [][]record.Record
	failures []error
}

// NewFakeSaver creates a saver that accepts everything.
func NewFakeSaver() *FakeSaver {
	return &FakeSaver{}
}

// Save records a copy of records.
func (s *FakeSaver) Save(_ context.Context, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]record.Record, len(records))
	for i, r := range records {
		saved[i] = r.Clone()
	}
	s.saves = append(s.saves, saved)
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	return nil
}

// FailNext makes the next save return err.
func (s *FakeSaver) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// Saves returns every save call's records.
func (s *FakeSaver) Saves() [][]record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]record.Record, len(s.saves))
	copy(out, s.saves)
	return out
}

// GatedSaver is a FakeSaver whose saves can be held until released, so a
// test can edit or change filters while a save is in flight.
type GatedSaver struct {
	*FakeSaver

	mu      sync.Mutex
	holding bool
	held    []chan struct{}
	changed chan struct{}
}

// NewGatedSaver creates a saver that accepts everything.
func NewGatedSaver() *GatedSaver {
	return &GatedSaver{FakeSaver: NewFakeSaver(), changed: make(chan struct{})}
}

// Save waits if holding, then records the save.
func (g *GatedSaver) Save(ctx context.Context, records []record.Record) error {
	g.mu.Lock()
	var release chan struct{}
	if g.holding {
		release = make(chan struct{})
		g.held = append(g.held, release)
	}
	g.notifyLocked()
	g.mu.Unlock()

	if release != nil {
		<-release
	}
	return g.FakeSaver.Save(ctx, records)
}

// Hold makes subsequent saves block until released.
func (g *GatedSaver) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holding = true
}

// Release lets the oldest held save proceed and stops holding.
func (g *GatedSaver) Release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holding = false
	if len(g.held) == 0 {
		return false
	}
	close(g.held[0])
	g.held = g.held[1:]
	g.notifyLocked()
	return true
}

// Held returns the number of blocked saves.
func (g *GatedSaver) Held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

// WaitHeld blocks until at least n saves are held.
func (g *GatedSaver) WaitHeld(ctx context.Context, n int) error {
	for {
		g.mu.Lock()
		if len(g.held) >= n {
			g.mu.Unlock()
			return nil
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (g *GatedSaver) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

// FakeReferences resolves ids from a map and counts lookups.
type FakeReferences struct {
	mu    sync.Mutex
	refs  map[string]record.Reference
	fail  map[string]error
	calls map[string]int
}

// NewFakeReferences creates a lookup serving refs.
func NewFakeReferences(refs ...record.Reference) *FakeReferences {
	f := &FakeReferences{
		refs:  make(map[string]record.Reference),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, r := range refs {
		f.refs[r.ID] = r
	}
	return f
}

// Fail makes lookups of id return err.
func (f *FakeReferences) Fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[id] = err
}

// Lookup resolves id.
func (f *FakeReferences) Lookup(_ context.Context, id string) (record.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err, ok := f.fail[id]; ok {
		return record.Reference{}, err
	}
	ref, ok := f.refs[id]
	if !ok {
		return record.Reference{}, fmt.Errorf("reference %q not found", id)
	}
	return ref, nil
}

// Calls returns how often id was looked up.
func (f *FakeReferences) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

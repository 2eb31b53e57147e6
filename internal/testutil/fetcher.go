package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
)

// Fetcher has the shape of collection.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error)
}

// Call is one recorded fetch.
type Call struct {
	Filter filter.Context
	Offset int
	Limit  int
}

// MemoryFetcher serves pages from an in-memory list.
//
// A record matches a context when its "table_type" field (if any) equals
// the context's table type and its "name" contains the search term.
type MemoryFetcher struct {
	mu      sync.Mutex
	records []record.Record
}

// NewMemoryFetcher creates a fetcher over records, in order.
func NewMemoryFetcher(records ...record.Record) *MemoryFetcher {
	m := &MemoryFetcher{}
	m.Put(records...)
	return m
}

// Put appends records, replacing any with the same id in place.
func (m *MemoryFetcher) Put(records ...record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
next:
	for _, r := range records {
		for i, existing := range m.records {
			if existing.ID == r.ID {
				m.records[i] = r.Clone()
				continue next
			}
		}
		m.records = append(m.records, r.Clone())
	}
}

// Fetch returns the page at offset.
func (m *MemoryFetcher) Fetch(_ context.Context, fc filter.Context, offset, limit int) (record.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	term := fc.SearchTerm()
	var matched []record.Record
	for _, r := range m.records {
		if tt := r.Text("table_type"); tt != "" && fc.TableType != "" && tt != fc.TableType {
			continue
		}
		if term != "" && !strings.Contains(filter.NormalizeSearch(r.Text("name")), term) {
			continue
		}
		matched = append(matched, r)
	}

	page := record.Page{TotalCount: len(matched), Offset: offset}
	if offset >= len(matched) {
		return page, nil
	}
	end := min(offset+limit, len(matched))
	for _, r := range matched[offset:end] {
		page.Items = append(page.Items, r.Clone())
	}
	return page, nil
}

// GatedFetcher wraps a Fetcher, recording every call. While holding, new
// calls block until released, which reproduces slow responses racing
// filter changes.
//
// Held calls ignore cancellation, like a transport that runs every
// request to completion, so a superseded page still arrives.
type GatedFetcher struct {
	inner Fetcher

	mu       sync.Mutex
	calls    []Call
	holding  bool
	held     []*heldCall
	failures []error
	changed  chan struct{}
}

type heldCall struct {
	call    Call
	release chan struct{}
}

// NewGatedFetcher wraps inner.
func NewGatedFetcher(inner Fetcher) *GatedFetcher {
	return &GatedFetcher{inner: inner, changed: make(chan struct{})}
}

// Fetch records the call, waits if holding, then delegates.
func (g *GatedFetcher) Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error) {
	g.mu.Lock()
	call := Call{Filter: fc.Clone(), Offset: offset, Limit: limit}
	g.calls = append(g.calls, call)
	var failure error
	if len(g.failures) > 0 {
		failure = g.failures[0]
		g.failures = g.failures[1:]
	}
	var h *heldCall
	if g.holding {
		h = &heldCall{call: call, release: make(chan struct{})}
		g.held = append(g.held, h)
	}
	g.notifyLocked()
	g.mu.Unlock()

	if h != nil {
		<-h.release
	}
	if failure != nil {
		return record.Page{}, failure
	}
	return g.inner.Fetch(context.WithoutCancel(ctx), fc, offset, limit)
}

// Hold makes subsequent calls block until released.
func (g *GatedFetcher) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holding = true
}

// Resume stops holding new calls. Already held calls stay held.
func (g *GatedFetcher) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holding = false
}

// Release lets the oldest held call proceed.
func (g *GatedFetcher) Release() (Call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.held) == 0 {
		return Call{}, false
	}
	h := g.held[0]
	g.held = g.held[1:]
	close(h.release)
	g.notifyLocked()
	return h.call, true
}

// ReleaseAll lets every held call proceed and stops holding.
func (g *GatedFetcher) ReleaseAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.held)
	for _, h := range g.held {
		close(h.release)
	}
	g.held = nil
	g.holding = false
	g.notifyLocked()
	return n
}

// FailNext makes the next call return err.
func (g *GatedFetcher) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, err)
}

// Held returns the number of blocked calls.
func (g *GatedFetcher) Held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

// WaitHeld blocks until at least n calls are held.
func (g *GatedFetcher) WaitHeld(ctx context.Context, n int) error {
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

// Calls returns every recorded call in order.
func (g *GatedFetcher) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Offsets returns the offsets of every recorded call in order.
func (g *GatedFetcher) Offsets() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.Offset
	}
	return out
}

func (g *GatedFetcher) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

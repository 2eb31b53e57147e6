package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/tally/internal/activity"
	"github.com/roach88/tally/internal/arbiter"
	"github.com/roach88/tally/internal/buffer"
	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/paging"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/value"
)

// ErrStopped is returned by Flush and Quiesce once the controller has
// been stopped.
var ErrStopped = errors.New("collection controller stopped")

// EditMode selects whether an edit re-renders immediately.
type EditMode int

const (
	// Silent updates storage without notifying subscribers. Used for a
	// field that is still being typed.
	Silent EditMode = iota + 1

	// Visible updates storage and notifies subscribers at once. Used for
	// toggle and selection edits.
	Visible
)

// quiescePoll bounds how long QuiesceExcept waits between checks when a
// request becomes blocked without settling.
const quiescePoll = 10 * time.Millisecond

// Tracked operation names on the activity gate.
const (
	OpFetch  = "fetch"
	OpSave   = "save"
	OpLookup = "lookup"
)

// Controller orchestrates one screen's collection.
//
// Thread-safety model:
//   - Reload, SetFilter, ReachBottom, Edit, Save: safe from any goroutine
//   - Snapshot, Subscribe, Flush, Quiesce: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// Cursor, buffers, reference cache and the in-flight bookkeeping are only
// touched by the Run goroutine.
type Controller struct {
	fetcher   Fetcher
	saver     Saver
	refs      ReferenceLookup
	refField  string
	sectionBy string
	required  []string
	projector Projector
	pageSize  int
	prefetch  int

	filters     *filter.Store
	unsubscribe func()
	tokenGen    arbiter.TokenGenerator
	clock       *arbiter.Clock
	arbiter     *arbiter.Arbiter
	cursor      *paging.Cursor
	bufs        *buffer.Buffers
	gate        *activity.Gate
	banner      *activity.Banner
	queue       *eventQueue
	logger      *slog.Logger

	// Owned by the Run goroutine.
	runCtx      context.Context
	current     filter.Context
	fetching    *inflight
	saveDone    func()
	references  map[string]record.Reference
	pendingRefs map[string]bool

	pending atomic.Int64
	settled chan struct{}

	mu     sync.Mutex
	state  State
	subs   []stateSub
	nextID int
}

type inflight struct {
	ticket arbiter.Ticket
	offset int
	done   func()
}

type stateSub struct {
	id int
	fn func(State)
}

// fetchGate exposes only in-flight page loads to the cursor, so a save
// or a reference lookup never blocks pagination.
type fetchGate struct {
	g *activity.Gate
}

func (f fetchGate) Busy() bool {
	return f.g.Active(OpFetch)
}

// New creates a controller reading pages from fetcher under initial.
// Nothing is loaded until Run starts.
func New(fetcher Fetcher, initial filter.Context, opts ...Option) *Controller {
	c := &Controller{
		fetcher:     fetcher,
		pageSize:    paging.DefaultPageSize,
		tokenGen:    arbiter.UUIDv7Generator{},
		clock:       arbiter.NewClock(),
		gate:        activity.NewGate(),
		queue:       newEventQueue(),
		logger:      slog.Default(),
		references:  make(map[string]record.Reference),
		pendingRefs: make(map[string]bool),
		settled:     make(chan struct{}, 1),
		runCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.filters == nil {
		c.filters = filter.NewStore(initial)
	}
	if c.projector == nil {
		c.projector = GroupBy(c.sectionBy, c.sectionBy != "" && c.sectionBy == c.refField)
	}
	c.current = c.filters.Current()
	c.banner = activity.NewBanner(c.logger)
	c.arbiter = arbiter.New(c.tokenGen, arbiter.WithLogger(c.logger), arbiter.WithClock(c.clock))
	c.arbiter.OnSupersede(func(old, next arbiter.Token) {
		if old != "" {
			c.logger.Debug("requests superseded", "old_token", old, "token", next)
		}
	})
	c.cursor = paging.NewCursor(c.pageSize, fetchGate{c.gate})
	c.bufs = buffer.New()
	c.unsubscribe = c.filters.Subscribe(func(filter.Context) {
		c.queue.Enqueue(event{typ: eventFilterChanged})
	})
	c.publish(false)
	return c
}

// Filters returns the filter store driving this controller.
func (c *Controller) Filters() *filter.Store {
	return c.filters
}

// Gate returns the controller's activity gate.
func (c *Controller) Gate() *activity.Gate {
	return c.gate
}

// Banner returns the controller's error channel.
func (c *Controller) Banner() *activity.Banner {
	return c.banner
}

// Reload clears everything and loads the first page again.
// Returns false if the controller has been stopped.
func (c *Controller) Reload() bool {
	return c.queue.Enqueue(event{typ: eventReload})
}

// SetFilter applies a partial filter update. It reports whether the
// selection changed; identical updates trigger nothing.
func (c *Controller) SetFilter(p filter.Partial) bool {
	_, changed := c.filters.Set(p)
	return changed
}

// ReachBottom reports that the row at visibleIndex has been rendered.
func (c *Controller) ReachBottom(visibleIndex int) bool {
	return c.queue.Enqueue(event{typ: eventReachBottom, index: visibleIndex})
}

// Edit patches the record id in the edit buffer.
func (c *Controller) Edit(id string, p record.Patch, mode EditMode) bool {
	return c.queue.Enqueue(event{typ: eventEdit, id: id, patch: p, mode: mode})
}

// Revert drops the local edits of ids, or of every record when no id is
// given.
func (c *Controller) Revert(ids ...string) bool {
	return c.queue.Enqueue(event{typ: eventRevert, ids: ids})
}

// Save validates and sends the full edit buffer to the saver.
func (c *Controller) Save() bool {
	return c.queue.Enqueue(event{typ: eventSave})
}

// Snapshot returns the latest state, including silent edits.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every published state. fn runs on the Run
// goroutine and must not block.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, stateSub{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Flush waits until every event enqueued before the call was processed.
func (c *Controller) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !c.queue.Enqueue(event{typ: eventBarrier, done: done}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quiesce waits until no fetch, save or lookup is outstanding and every
// resulting event was processed. Held requests must be released first.
func (c *Controller) Quiesce(ctx context.Context) error {
	return c.QuiesceExcept(ctx, nil)
}

// QuiesceExcept is Quiesce for callers that deliberately block some
// requests. It returns once no more than blocked() operations remain
// outstanding and every event produced by the others was processed.
func (c *Controller) QuiesceExcept(ctx context.Context, blocked func() int) error {
	for {
		if err := c.Flush(ctx); err != nil {
			return err
		}
		allowed := int64(0)
		if blocked != nil {
			allowed = int64(blocked())
		}
		if c.pending.Load() <= allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.settled:
		case <-time.After(quiescePoll):
		}
	}
}

// Run starts the event loop and loads the first page.
// Blocks until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	c.logger.Info("collection controller starting",
		"table_type", c.current.TableType,
		"page_size", c.cursor.PageSize(),
	)
	c.reset(c.filters.Current(), "start")

	for {
		ev, ok := c.queue.TryDequeue()
		if ok {
			c.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("collection controller stopping: context cancelled")
			c.shutdown()
			return ctx.Err()

		case <-c.queue.Wait():
			if c.queue.Closed() && c.queue.Len() == 0 {
				c.logger.Info("collection controller stopping: queue closed")
				c.shutdown()
				return nil
			}
		}
	}
}

// Stop shuts the controller down. Run returns after draining the queue.
func (c *Controller) Stop() {
	c.queue.Close()
}

func (c *Controller) shutdown() {
	c.queue.Close()
	c.unsubscribe()
	c.arbiter.Close()
	if c.fetching != nil {
		c.fetching.done()
		c.fetching = nil
	}
}

// process routes one event. Called only from the Run goroutine.
func (c *Controller) process(ev event) {
	switch ev.typ {
	case eventReload:
		c.reset(c.current, "reload")
	case eventFilterChanged:
		// Concurrent Set calls may notify out of order; always reset to
		// the store's current context.
		fc := c.filters.Current()
		if fc.Equal(c.current) {
			c.logger.Debug("filter unchanged", "table_type", fc.TableType)
			return
		}
		c.reset(fc, "filter")
	case eventReachBottom:
		c.reachBottom(ev.index)
	case eventFetchDone:
		c.applyPage(ev)
	case eventEdit:
		c.applyEdit(ev)
	case eventRevert:
		c.revert(ev.ids)
	case eventSave:
		c.startSave()
	case eventSaveDone:
		c.finishSave(ev)
	case eventLookupDone:
		c.applyReference(ev)
	case eventBarrier:
		close(ev.done)
	default:
		c.logger.Error("unknown event type", "type", int(ev.typ))
	}
}

// reset starts a new generation under fc and loads its first page.
func (c *Controller) reset(fc filter.Context, reason string) {
	c.current = fc
	token := c.arbiter.Mint(fc.Key())
	if c.fetching != nil {
		c.fetching.done()
		c.fetching = nil
	}
	c.cursor.Reset()
	c.bufs.Reset()

	c.logger.Info("collection reset",
		"reason", reason,
		"table_type", fc.TableType,
		"search", fc.SearchText,
		"token", token,
	)
	c.loadNext(reason)
	c.publish(true)
}

func (c *Controller) reachBottom(index int) {
	loaded := c.bufs.Len()
	if index < loaded-1-c.prefetch {
		c.logger.Debug("reach bottom ignored: end not visible",
			"index", index,
			"loaded", loaded,
			"prefetch_distance", c.prefetch,
		)
		return
	}
	if c.loadNext("reach_bottom") {
		c.publish(true)
	}
}

// loadNext dispatches the next page if the cursor allows it.
func (c *Controller) loadNext(trigger string) bool {
	offset, ok := c.cursor.Advance()
	if !ok {
		c.logger.Debug("advance rejected",
			"trigger", trigger,
			"loading", c.fetching != nil,
			"exhausted", c.cursor.Exhausted(),
		)
		return false
	}

	ticket := c.arbiter.Tag(c.runCtx)
	c.fetching = &inflight{ticket: ticket, offset: offset, done: c.gate.Track(OpFetch)}
	fc := c.current
	limit := c.cursor.PageSize()

	c.logger.Debug("fetch dispatched",
		"trigger", trigger,
		"table_type", fc.TableType,
		"offset", offset,
		"limit", limit,
		"token", ticket.Token,
		"seq", ticket.Seq,
	)
	c.spawn(func() {
		page, err := c.fetcher.Fetch(ticket.Context(), fc, offset, limit)
		ok := c.queue.Enqueue(event{typ: eventFetchDone, ticket: ticket, offset: offset, page: page, err: err})
		if !ok {
			ticket.Release()
		}
	})
	return true
}

func (c *Controller) applyPage(ev event) {
	if c.fetching != nil && c.fetching.ticket.Seq == ev.ticket.Seq {
		c.fetching.done()
		c.fetching = nil
	}

	switch c.arbiter.Settle(ev.ticket, ev.err) {
	case arbiter.Drop:
		return
	case arbiter.Fail:
		c.banner.Error(NewFetchError(c.current.TableType, ev.offset, ev.err))
		c.publish(true)
		return
	}

	if err := c.cursor.Commit(ev.offset, ev.page.TotalCount); err != nil {
		c.logger.Error("page rejected", "offset", ev.offset, "error", err)
		c.publish(true)
		return
	}
	added := c.bufs.AppendPage(ev.page.Items)

	c.logger.Info("page applied",
		"table_type", c.current.TableType,
		"offset", ev.offset,
		"items", len(ev.page.Items),
		"added", added,
		"total_count", ev.page.TotalCount,
		"token", ev.ticket.Token,
	)
	c.requestReferences()
	c.publish(true)
}

func (c *Controller) applyEdit(ev event) {
	err := c.bufs.ApplyPatch(ev.id, ev.patch)
	switch {
	case errors.Is(err, buffer.ErrUnknownRecord):
		c.logger.Debug("edit ignored: record not loaded", "id", ev.id)
		return
	case err != nil:
		c.banner.Error(&Error{
			Code:      ErrCodeValidationFailed,
			Message:   fmt.Sprintf("edit of record %s rejected", ev.id),
			TableType: c.current.TableType,
			Offset:    -1,
			Err:       err,
		})
		return
	}
	c.requestReferences()
	c.publish(ev.mode == Visible)
}

func (c *Controller) revert(ids []string) {
	if len(ids) == 0 {
		dirty := len(c.bufs.Dirty())
		if dirty == 0 {
			return
		}
		c.bufs.Seed(c.bufs.Baseline())
		c.logger.Info("edits reverted", "table_type", c.current.TableType, "records", dirty)
		c.publish(true)
		return
	}

	reverted := 0
	for _, id := range ids {
		if !c.bufs.IsDirty(id) {
			c.logger.Debug("revert ignored: no edits", "id", id)
			continue
		}
		c.bufs.Discard(id)
		reverted++
	}
	if reverted > 0 {
		c.logger.Info("edits reverted", "table_type", c.current.TableType, "records", reverted)
		c.publish(true)
	}
}

func (c *Controller) startSave() {
	if c.saver == nil {
		c.logger.Warn("save ignored: no saver configured")
		return
	}
	if c.saveDone != nil {
		c.logger.Debug("save ignored: save in flight")
		return
	}
	if err := c.validate(); err != nil {
		c.banner.Error(err)
		return
	}

	snapshot := c.bufs.Merged()
	token, _ := c.arbiter.Current()
	c.saveDone = c.gate.Track(OpSave)
	ctx := c.runCtx

	c.logger.Info("save dispatched",
		"table_type", c.current.TableType,
		"records", len(snapshot),
		"dirty", len(c.bufs.Dirty()),
	)
	c.spawn(func() {
		err := c.saver.Save(ctx, snapshot)
		c.queue.Enqueue(event{typ: eventSaveDone, saved: snapshot, token: token, err: err})
	})
	c.publish(true)
}

func (c *Controller) finishSave(ev event) {
	if c.saveDone != nil {
		c.saveDone()
		c.saveDone = nil
	}
	if ev.err != nil {
		c.banner.Error(NewSaveError(c.current.TableType, ev.err))
		c.publish(true)
		return
	}

	if current, _ := c.arbiter.Current(); current == ev.token {
		c.bufs.CommitRecords(ev.saved)
	} else {
		c.logger.Debug("save completed for superseded context", "token", ev.token)
	}
	c.banner.Success(fmt.Sprintf("Saved %d records", len(ev.saved)))
	c.publish(true)
}

// validate checks required fields on every edited record.
func (c *Controller) validate() error {
	var problems []string
	for _, id := range c.bufs.Dirty() {
		r, _ := c.bufs.Get(id)
		for _, field := range c.required {
			if blank(r.Get(field)) {
				problems = append(problems, fmt.Sprintf("record %s: %s is required", id, field))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return NewValidationError(c.current.TableType, strings.Join(problems, "; "))
}

func blank(v value.Value) bool {
	switch val := v.(type) {
	case nil, value.Null:
		return true
	case value.String:
		return strings.TrimSpace(string(val)) == ""
	default:
		return false
	}
}

// requestReferences looks up every referenced id not yet cached.
// Lookups are shared across filter changes for the controller's lifetime.
func (c *Controller) requestReferences() {
	if c.refs == nil || c.refField == "" {
		return
	}
	for _, r := range c.bufs.Merged() {
		id := r.Text(c.refField)
		if id == "" || c.pendingRefs[id] {
			continue
		}
		if _, ok := c.references[id]; ok {
			continue
		}
		c.pendingRefs[id] = true
		done := c.gate.Track(OpLookup)
		ctx := c.runCtx
		c.spawn(func() {
			defer done()
			ref, err := c.refs.Lookup(ctx, id)
			c.queue.Enqueue(event{typ: eventLookupDone, id: id, ref: ref, err: err})
		})
	}
}

func (c *Controller) applyReference(ev event) {
	delete(c.pendingRefs, ev.id)
	ref := ev.ref
	if ev.err != nil {
		c.logger.Warn("reference lookup failed",
			"code", ErrCodeLookupFailed,
			"id", ev.id,
			"error", ev.err,
		)
		ref = record.Placeholder(ev.id)
	}
	if ref.ID == "" {
		ref.ID = ev.id
	}
	c.references[ev.id] = ref
	c.publish(true)
}

// spawn runs fn on its own goroutine and counts it for Quiesce.
func (c *Controller) spawn(fn func()) {
	c.pending.Add(1)
	go func() {
		defer func() {
			c.pending.Add(-1)
			select {
			case c.settled <- struct{}{}:
			default:
			}
		}()
		fn()
	}()
}

// publish recomputes the state. Subscribers are told only when notify
// is set; Snapshot always sees the latest.
func (c *Controller) publish(notify bool) {
	st := c.computeState()

	c.mu.Lock()
	c.state = st
	subs := make([]stateSub, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	if !notify {
		return
	}
	for _, s := range subs {
		s.fn(st)
	}
}

func (c *Controller) computeState() State {
	dirtyIDs := c.bufs.Dirty()
	dirty := make(map[string]bool, len(dirtyIDs))
	for _, id := range dirtyIDs {
		dirty[id] = true
	}
	sections := c.projector(ProjectionInput{
		Records:    c.bufs.Merged(),
		Dirty:      dirty,
		References: maps.Clone(c.references),
	})

	offset, ok := c.cursor.Current()
	if !ok {
		offset = -1
	}
	total, ok := c.cursor.Total()
	if !ok {
		total = -1
	}
	return State{
		Version:   c.clock.Next(),
		Filter:    c.current.Clone(),
		FilterKey: c.current.Key(),
		Sections:  sections,
		Loaded:    c.bufs.Len(),
		Offset:    offset,
		Total:     total,
		Loading:   c.fetching != nil,
		Saving:    c.saveDone != nil,
		Exhausted: c.cursor.Exhausted(),
		Dirty:     dirtyIDs,
	}
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tally/internal/activity"
	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
	"github.com/roach88/tally/internal/value"
)

// DefaultScreen is used when a scenario names none.
const DefaultScreen = "inventory"

// StepTimeout bounds every wait inside a scenario.
const StepTimeout = 5 * time.Second

// Harness holds one scenario's controller and its collaborators.
type Harness struct {
	screen  config.Screen
	store   *store.Store
	fetcher *testutil.GatedFetcher
	saver   *faultySaver
	filters *filter.Store
	ctrl    *collection.Controller
	logger  *slog.Logger

	mu      sync.Mutex
	banners []activity.Message
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	config *config.Config
	logger *slog.Logger
}

// WithConfig uses cfg instead of the embedded screens.
func WithConfig(cfg *config.Config) Option {
	return func(rc *runConfig) {
		rc.config = cfg
	}
}

// WithLogger logs controller activity to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(rc *runConfig) {
		rc.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Seed the store and start the controller
//  2. Execute steps, settling and checking step expectations after each
//  3. Release every held fetch, settle, check the final expectations
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	rc := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.config == nil {
		cfg, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("load default screens: %w", err)
		}
		rc.config = cfg
	}

	name := scenario.Screen
	if name == "" {
		name = DefaultScreen
	}
	screen, ok := rc.config.Screen(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q", name)
	}
	if scenario.PageSize > 0 {
		screen.PageSize = scenario.PageSize
	}

	st, err := store.Open(":memory:",
		store.WithLayout(screen.Table, screen.Layout(store.DefaultLayout())),
		store.WithLogger(rc.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	h := &Harness{
		screen:  screen,
		store:   st,
		fetcher: testutil.NewGatedFetcher(st),
		saver:   &faultySaver{inner: st},
		filters: filter.NewStore(screen.Filter()),
		logger:  rc.logger,
	}
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	ctrlOpts := append(screen.Options(st),
		collection.WithSaver(h.saver),
		collection.WithTokenGenerator(testutil.NewSequenceGenerator("req")),
		collection.WithLogger(rc.logger),
		collection.WithFilterStore(h.filters),
	)
	h.ctrl = collection.New(h.fetcher, screen.Filter(), ctrlOpts...)
	cancelBanner := h.ctrl.Banner().Subscribe(func(m activity.Message) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.banners = append(h.banners, m)
	})
	defer cancelBanner()

	if scenario.HoldInitial {
		h.fetcher.Hold()
	}
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	runDone := make(chan error, 1)
	go func() { runDone <- h.ctrl.Run(runCtx) }()
	defer func() {
		h.fetcher.ReleaseAll()
		h.ctrl.Stop()
		<-runDone
	}()

	result := NewResult()
	if err := h.settle(ctx, scenario.HoldInitial); err != nil {
		return nil, fmt.Errorf("initial load: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Do, err)
		}
		snap := h.ctrl.Snapshot()
		result.Steps = append(result.Steps, stepEvent(step.Do, snap))
		if step.Expect != nil {
			for _, msg := range h.check(ctx, step.Expect, snap) {
				result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Do, msg))
			}
		}
	}

	h.fetcher.ReleaseAll()
	if err := h.settle(ctx, false); err != nil {
		return nil, fmt.Errorf("final settle: %w", err)
	}
	result.Final = h.ctrl.Snapshot()
	result.Fetches = fetchEvents(h.fetcher.Calls())
	result.Banners = h.bannerLog()
	if scenario.Expect != nil {
		for _, msg := range h.check(ctx, scenario.Expect, result.Final) {
			result.AddError("final: " + msg)
		}
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Do {
	case StepSeed:
		if err := h.seed(ctx, *step.Seed); err != nil {
			return err
		}
	case StepSetFilter:
		// Filter controls write to the shared store, not the controller.
		h.filters.Set(*step.Filter)
	case StepReachBottom:
		h.ctrl.ReachBottom(step.Index)
	case StepReload:
		h.ctrl.Reload()
	case StepEdit:
		patch, err := editPatch(step)
		if err != nil {
			return err
		}
		mode := collection.Visible
		if step.Mode == "silent" {
			mode = collection.Silent
		}
		h.ctrl.Edit(step.ID, patch, mode)
	case StepRevert:
		h.ctrl.Revert(step.IDs...)
	case StepSave:
		h.ctrl.Save()
	case StepHold:
		h.fetcher.Hold()
	case StepResume:
		h.fetcher.Resume()
	case StepRelease:
		if step.All {
			h.fetcher.ReleaseAll()
			break
		}
		n := max(step.Count, 1)
		for i := 0; i < n; i++ {
			waitCtx, cancel := context.WithTimeout(ctx, StepTimeout)
			err := h.fetcher.WaitHeld(waitCtx, 1)
			cancel()
			if err != nil {
				return fmt.Errorf("no held fetch to release: %w", err)
			}
			h.fetcher.Release()
		}
	case StepFailNext:
		if step.Target == "save" {
			h.saver.FailNext(errors.New(step.Error))
		} else {
			h.fetcher.FailNext(errors.New(step.Error))
		}
	case StepSettle:
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
	return h.settle(ctx, true)
}

// settle waits until every request is either held or finished and its
// result processed. With allowHeld false nothing may remain held.
func (h *Harness) settle(ctx context.Context, allowHeld bool) error {
	ctx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()
	if !allowHeld {
		return h.ctrl.Quiesce(ctx)
	}
	return h.ctrl.QuiesceExcept(ctx, h.fetcher.Held)
}

func (h *Harness) seed(ctx context.Context, s Seed) error {
	for id, name := range s.Categories {
		if err := h.store.PutCategory(ctx, record.Reference{ID: id, Name: name}); err != nil {
			return err
		}
	}
	if s.Demo > 0 {
		if _, err := h.store.SeedDemo(ctx, s.Demo, h.screen.Table); err != nil {
			return err
		}
	}
	if len(s.Records) == 0 {
		return nil
	}
	records := make([]record.Record, 0, len(s.Records))
	for _, spec := range s.Records {
		fields, err := value.ObjectFromMap(spec.Fields)
		if err != nil {
			return fmt.Errorf("record %s: %w", spec.ID, err)
		}
		if _, ok := fields["table_type"]; !ok {
			fields["table_type"] = value.String(h.screen.Table)
		}
		records = append(records, record.New(spec.ID, fields))
	}
	return h.store.Save(ctx, records)
}

func (h *Harness) bannerLog() []activity.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]activity.Message, len(h.banners))
	copy(out, h.banners)
	return out
}

func editPatch(step Step) (record.Patch, error) {
	var patches []record.Patch
	if len(step.Set) > 0 {
		fields, err := value.ObjectFromMap(step.Set)
		if err != nil {
			return nil, fmt.Errorf("edit %s: %w", step.ID, err)
		}
		patches = append(patches, record.Merge(fields))
	}
	for _, f := range step.Unset {
		patches = append(patches, record.Unset(f))
	}
	return record.Compose(patches...), nil
}

// faultySaver passes saves to the store unless a failure is queued.
type faultySaver struct {
	inner collection.Saver

	mu       sync.Mutex
	failures []error
}

func (s *faultySaver) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func (s *faultySaver) Save(ctx context.Context, records []record.Record) error {
	s.mu.Lock()
	var failure error
	if len(s.failures) > 0 {
		failure = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()
	if failure != nil {
		return failure
	}
	return s.inner.Save(ctx, records)
}

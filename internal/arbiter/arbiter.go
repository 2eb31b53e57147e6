package arbiter

import (
	"context"
	"log/slog"
	"sync"
)

// Outcome is the verdict for a completed request.
type Outcome int

const (
	// Apply: the result belongs to the current context.
	Apply Outcome = iota + 1
	// Fail: the current context's request failed.
	Fail
	// Drop: the context changed while the request was in flight.
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Apply:
		return "apply"
	case Fail:
		return "fail"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// Ticket tags one outbound request.
type Ticket struct {
	Token      Token
	ContextKey string
	Seq        int64

	ctx  context.Context
	stop func()
}

// Context returns the request context. It is cancelled when the ticket's
// token is superseded or Release is called.
func (t Ticket) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// Release frees the resources tied to the ticket's context.
func (t Ticket) Release() {
	if t.stop != nil {
		t.stop()
	}
}

// Arbiter tracks the current token. Safe for concurrent use: fetch
// goroutines may call Valid while the controller mints.
type Arbiter struct {
	mu         sync.Mutex
	gen        TokenGenerator
	clock      *Clock
	current    Token
	contextKey string
	scope      context.Context
	cancel     context.CancelFunc
	observers  []func(old, next Token)
	logger     *slog.Logger
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) {
		a.logger = l
	}
}

// WithClock sets the clock used to stamp tickets.
func WithClock(c *Clock) Option {
	return func(a *Arbiter) {
		a.clock = c
	}
}

// New creates an arbiter. No token is current until the first Mint.
func New(gen TokenGenerator, opts ...Option) *Arbiter {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	a := &Arbiter{
		gen:    gen,
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.scope, a.cancel = context.WithCancel(context.Background())
	return a
}

// OnSupersede registers fn to be told about every new generation.
// This is the cancel-superseded signal.
func (a *Arbiter) OnSupersede(fn func(old, next Token)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// Mint starts a new generation for the context identified by key.
// Every ticket issued before this call becomes invalid and its context
// is cancelled.
func (a *Arbiter) Mint(key string) Token {
	next := Token(a.gen.Generate())

	a.mu.Lock()
	old := a.current
	a.cancel()
	a.scope, a.cancel = context.WithCancel(context.Background())
	a.current = next
	a.contextKey = key
	observers := make([]func(old, next Token), len(a.observers))
	copy(observers, a.observers)
	a.mu.Unlock()

	a.logger.Debug("token minted", "old_token", old, "token", next, "context_key", short(key))
	for _, fn := range observers {
		fn(old, next)
	}
	return next
}

// Current returns the current token and context key.
func (a *Arbiter) Current() (Token, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.contextKey
}

// Tag issues a ticket for a request made now. The ticket context derives
// from parent and is additionally cancelled on supersession.
func (a *Arbiter) Tag(parent context.Context) Ticket {
	if parent == nil {
		parent = context.Background()
	}
	a.mu.Lock()
	tok, key, scope := a.current, a.contextKey, a.scope
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stopAfter := context.AfterFunc(scope, cancel)
	return Ticket{
		Token:      tok,
		ContextKey: key,
		Seq:        a.clock.Next(),
		ctx:        ctx,
		stop: func() {
			stopAfter()
			cancel()
		},
	}
}

// Valid reports whether t still belongs to the current generation.
func (a *Arbiter) Valid(t Ticket) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return t.Token != "" && t.Token == a.current
}

// Settle decides what to do with a completed request and releases the
// ticket. A failure of a superseded request is dropped like its result.
func (a *Arbiter) Settle(t Ticket, err error) Outcome {
	defer t.Release()
	if !a.Valid(t) {
		a.logger.Debug("superseded result dropped",
			"token", t.Token,
			"seq", t.Seq,
			"had_error", err != nil,
		)
		return Drop
	}
	if err != nil {
		return Fail
	}
	return Apply
}

// Close cancels every outstanding ticket.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel()
	a.current = ""
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

package arbiter

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Token identifies one filter context generation.
type Token string

// TokenGenerator mints request tokens.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens, which keeps log
// lines for successive generations in order.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order.
// Panics once all tokens are used, to catch tests that mint more
// generations than they expect.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator returning tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}

// Clock is a monotonic logical clock stamping tickets and states.
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments and returns the sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates "<prefix>-1", "<prefix>-2", ... forever.
//
// Every generation must differ from the previous one for supersession to
// work, so tests that need stable golden output use this instead of a
// single fixed token. Two generators with the same prefix produce the
// same sequence.
//
// Thread-safety: safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "tok".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "tok"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

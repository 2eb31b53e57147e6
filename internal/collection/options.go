package collection

import (
	"log/slog"

	"github.com/roach88/tally/internal/arbiter"
	"github.com/roach88/tally/internal/filter"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithPageSize sets the page size. Default: paging.DefaultPageSize.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		c.pageSize = n
	}
}

// WithPrefetchDistance lets a reach-bottom signal load the next page when
// the visible index is within n rows of the end. Default: 0, the last
// loaded row must be visible.
func WithPrefetchDistance(n int) Option {
	return func(c *Controller) {
		c.prefetch = max(n, 0)
	}
}

// WithTokenGenerator sets the request token generator.
// Use arbiter.NewFixedGenerator in tests for stable tokens.
func WithTokenGenerator(g arbiter.TokenGenerator) Option {
	return func(c *Controller) {
		c.tokenGen = g
	}
}

// WithSaver enables Save.
func WithSaver(s Saver) Option {
	return func(c *Controller) {
		c.saver = s
	}
}

// WithReferences resolves the ids found in field through lookup.
func WithReferences(lookup ReferenceLookup, field string) Option {
	return func(c *Controller) {
		c.refs = lookup
		c.refField = field
	}
}

// WithSections groups rows by field. When field is also the reference
// field, section titles are the resolved reference names.
func WithSections(field string) Option {
	return func(c *Controller) {
		c.sectionBy = field
	}
}

// WithProjector replaces the default projection.
func WithProjector(p Projector) Option {
	return func(c *Controller) {
		c.projector = p
	}
}

// WithRequired lists fields that must be non-empty on edited records
// before a save is dispatched.
func WithRequired(fields ...string) Option {
	return func(c *Controller) {
		c.required = append([]string(nil), fields...)
	}
}

// WithFilterStore shares an existing filter store instead of creating one.
func WithFilterStore(s *filter.Store) Option {
	return func(c *Controller) {
		c.filters = s
	}
}

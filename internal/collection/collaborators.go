package collection

import (
	"context"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
)

// Fetcher loads one page of records for a filter context.
// Implementations must be idempotent so a failed page can be retried.
// Timeouts belong to the implementation and surface as ordinary errors.
type Fetcher interface {
	Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error)
}

// Saver persists the full edit buffer.
type Saver interface {
	Save(ctx context.Context, records []record.Record) error
}

// ReferenceLookup resolves auxiliary data such as category names.
type ReferenceLookup interface {
	Lookup(ctx context.Context, id string) (record.Reference, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error) {
	return f(ctx, fc, offset, limit)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, records []record.Record) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, records []record.Record) error {
	return f(ctx, records)
}

// LookupFunc adapts a function to ReferenceLookup.
type LookupFunc func(ctx context.Context, id string) (record.Reference, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, id string) (record.Reference, error) {
	return f(ctx, id)
}

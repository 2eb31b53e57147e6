// Package paging implements the offset cursor of a paginated collection.
//
// The cursor is owned by a single controller goroutine and is not safe
// for concurrent use.
package paging

import "fmt"

// DefaultPageSize is used when a screen does not configure one.
const DefaultPageSize = 15

// MaxPageSize is the largest page a screen may request. The HTTP API
// rejects larger limits.
const MaxPageSize = 200

// Gate reports whether a tracked load is in flight.
type Gate interface {
	Busy() bool
}

const unset = -1

// Cursor owns the offset counter for one filter context.
//
// Offsets only move through Commit, after the page at that offset has
// actually been applied. Advance merely proposes the next offset, so a
// failed fetch can be retried at the same position.
type Cursor struct {
	pageSize int
	offset   int
	total    int
	gate     Gate
}

// NewCursor creates a cursor in the reset state.
// A nil gate never reports busy.
func NewCursor(pageSize int, gate Gate) *Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{pageSize: pageSize, offset: unset, total: unset, gate: gate}
}

// PageSize returns the fixed increment.
func (c *Cursor) PageSize() int {
	return c.pageSize
}

// Reset returns the cursor to "request the first page next".
func (c *Cursor) Reset() {
	c.offset = unset
	c.total = unset
}

// Advance proposes the offset of the next page.
//
// It returns false while the gate is busy, and once the next offset would
// reach or pass the known total count. After a reset it proposes 0.
func (c *Cursor) Advance() (int, bool) {
	if c.gate != nil && c.gate.Busy() {
		return 0, false
	}
	if c.offset == unset {
		return 0, true
	}
	next := c.offset + c.pageSize
	if c.total != unset && next >= c.total {
		return 0, false
	}
	return next, true
}

// Commit records that the page at offset was applied and the server
// reported total records. Offsets must strictly increase between resets.
func (c *Cursor) Commit(offset, total int) error {
	if offset < 0 {
		return fmt.Errorf("commit offset %d: negative offset", offset)
	}
	if c.offset != unset && offset <= c.offset {
		return fmt.Errorf("commit offset %d: not after current offset %d", offset, c.offset)
	}
	c.offset = offset
	c.total = max(total, 0)
	return nil
}

// Current returns the offset of the last applied page.
// ok is false before the first page of a context.
func (c *Cursor) Current() (offset int, ok bool) {
	if c.offset == unset {
		return 0, false
	}
	return c.offset, true
}

// Total returns the last reported total count.
func (c *Cursor) Total() (total int, ok bool) {
	if c.total == unset {
		return 0, false
	}
	return c.total, true
}

// Exhausted reports whether every record of the context has been requested.
func (c *Cursor) Exhausted() bool {
	if c.offset == unset || c.total == unset {
		return false
	}
	return c.offset+c.pageSize >= c.total
}

// Package arbiter binds outbound fetches to the filter context that was
// active when they were dispatched, and discards their results once that
// context has been superseded.
//
// SUPERSESSION:
//
// Every filter change or reload mints a new Token. A Ticket carries the
// token that was current at dispatch time. When the request completes,
// Settle compares the ticket against the current token:
//   - still current, no error: Apply
//   - still current, error:    Fail (surface to the banner)
//   - superseded, any result:  Drop (not an error, never surfaced)
//
// Superseded requests are also cancelled through their context.Context, so
// transports that honour cancellation stop early. The token check alone is
// what guarantees correctness: a transport that ignores cancellation still
// has its result dropped.
package arbiter

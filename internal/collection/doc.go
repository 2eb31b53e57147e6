// Package collection implements the controller that keeps a paginated,
// filterable record list in sync with a remote source while the user
// edits it.
//
// The Controller is a single-writer event loop. Public methods only
// enqueue events; Run applies them one at a time in arrival order, so
// the cursor, both buffers and the current token are never touched by
// more than one goroutine.
//
// TRIGGERS:
//   - Reload: reset cursor and buffers, mint a new token, load page 0
//   - filter changed: the same reset under the new filter context
//   - ReachBottom: load the next page when the guard allows it
//   - Edit: patch the edit buffer, silently or visibly
//   - Save: validate and send the full edit buffer to the Saver
//
// After every change the Projector turns the merged records and the
// reference cache into sections and rows, published to subscribers as a
// State.
//
// A filter change always beats an in-flight page: the page's ticket no
// longer matches the current token when it completes, so its result is
// dropped no matter which event arrives first.
package collection

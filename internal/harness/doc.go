// Package harness runs collection controller scenarios written in YAML.
//
// A scenario picks a screen, seeds an in-memory SQLite store and drives
// a real controller through a list of steps. Fetches pass through a
// gated fetcher, so a scenario can hold responses and release them out
// of order to reproduce races between slow pages and filter changes.
//
// # Scenario Format
//
//	name: search_supersedes_slow_page
//	screen: inventory
//	page_size: 2
//	seed:
//	  records:
//	    - id: "1"
//	      fields: { name: "Apple", category_id: "cat-a" }
//	steps:
//	  - do: hold
//	  - do: set_filter
//	    filter: { search: "app" }
//	  - do: release
//	  - do: settle
//	    expect:
//	      ids: ["1"]
//	expect:
//	  fetch_offsets: [0, 0]
//
// # Steps
//
//   - seed: insert more records into the store
//   - set_filter: apply a partial filter update
//   - reach_bottom: report a visible row index
//   - reload: start the current context over
//   - edit: set or unset fields of one record
//   - revert: drop edits of the listed ids, or of every record
//   - save: send the edit buffer
//   - hold / resume: start or stop holding new fetches
//   - release: let held fetches through, oldest first
//   - fail_next: make the next fetch (default) or save fail
//   - settle: wait until nothing is outstanding
//
// After every step the harness waits until each fetch is either held or
// finished and processed, so expectations never race the controller.
//
// # Deterministic Testing
//
// Request tokens come from a sequence generator and the store is a fresh
// in-memory database, so identical scenarios produce identical snapshots
// for golden comparison.
package harness

// Package store is the SQLite record source behind a collection.
//
// It serves the three collaborator contracts of the collection
// controller: Fetch (one page plus the total for a filter context), Save
// (upsert of the full edit buffer in one transaction) and Lookup
// (category names).
//
// # Deterministic Paging
//
// Filter contexts compile through queryir and querysql. Every page query
// ends with "id ASC COLLATE BINARY", so offsets stay stable between
// requests for the same context. Page and count run in one read
// transaction so TotalCount always describes the same snapshot as Items.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Schema changes are tracked with PRAGMA user_version.
package store

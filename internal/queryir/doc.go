// Package queryir is the query representation a filter context compiles
// to before it reaches a storage backend.
//
//	[filter.Context] → [queryir.Select / queryir.Count] → [querysql]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch exhaustively over them:
//
//	switch q := query.(type) {
//	case Select:
//	    // page of rows
//	case Count:
//	    // total for the same filter
//	}
//
// Literal values are value.Value (no floats). Field names are plain
// identifiers; Validate rejects anything else so a backend can splice
// them into its query text safely.
//
// Every page query carries an explicit order. Backends must append the
// record id as the final tie-breaker so offsets are stable between
// requests for the same context.
package queryir

// Package config loads screen definitions written in CUE.
//
// A screen binds a table type to its paging tunables, grouping, required
// fields and the named toggles the filter bar offers. The embedded
// screens.cue holds the #Screen schema and the default screens; a config
// directory replaces the default screens but is always checked against
// the embedded schema.
package config

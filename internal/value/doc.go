// Package value defines the field values carried by records.
//
// Values are a sealed set: Null, String, Int, Bool, Array and Object.
// There is no float type. Monetary amounts are stored as Int in minor
// units (cents), so totals and comparisons are exact.
//
// # Canonical JSON
//
// MarshalCanonical produces RFC 8785 style output (UTF-16 key ordering,
// no HTML escaping, NFC-normalised strings). It is the only serialisation
// used for identity: filter context keys, record fingerprints and golden
// snapshots all go through it.
package value

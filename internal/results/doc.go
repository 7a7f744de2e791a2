// Package results reads and writes result records.
//
// A record is one JSON object per artifact file: a top-level "hash" member
// holding the fingerprint of the model inputs, and one member per computed
// parameter value, keyed by its string form (temperatures as "%.2f").
//
//	{"hash": "3f1c...", "300.00": 0.8123, "250.00": 0.7001}
//
// Distinct parameter points share one record; they are entries, not files.
package results

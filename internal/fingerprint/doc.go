// Package fingerprint computes integrity hashes over model input files.
//
// A fingerprint is stored alongside every derived result record. When the
// model inputs change, the fingerprint changes and every record derived from
// the old inputs becomes stale at once.
//
// Fingerprints are computed over a canonical JSON form of the input:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized
//   - numbers kept as their literal source text
//   - no insignificant whitespace
//
// Reformatting a model file therefore does not invalidate results, while
// changing any value does.
package fingerprint

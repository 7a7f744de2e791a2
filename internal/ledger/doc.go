// Package ledger keeps an append-only SQLite log of job submissions.
//
// The ledger is an audit trail: which jobs a sweep submitted, when, with what
// command, and whether the scheduler accepted them. It is never consulted
// when deciding whether to submit. Result records on disk remain the only
// source of truth for that, so deleting the ledger loses history but never
// causes duplicate or missing work.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers while a sweep writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: several sweep processes may share one ledger file
//   - single open connection per process
package ledger

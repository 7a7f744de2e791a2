// Package scheduler submits jobs to an external batch scheduler.
//
// A submission is a single shell command: a resource-request prefix followed
// by an embedded interpreter call, e.g.
//
//	srun --job-name=sos_D3_T300.00 --mem=20GB python3 -c '<statements>'
//
// Two modes are supported:
//   - Async: start the command and return once the scheduler has accepted it.
//     The job's outcome is never observed. There is no cancellation.
//   - Sync: run the command to completion and capture both output streams.
//     Outcome is classified by content, not exit status: an out-of-memory
//     marker in stderr is a ResourceExhaustedError, anything else is returned
//     to the caller as-is.
//
// Retrying failed submissions is left to the caller.
package scheduler

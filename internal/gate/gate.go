// Package gate decides whether a parameter point needs a job.
//
// The policy, in order:
//  1. no record at the path: submit
//  2. record hash does not match the current inputs: submit (the whole
//     record is stale, whatever entries it holds)
//  3. key already present: skip
//  4. otherwise: submit
//
// Fresh-and-present is the only skip condition. Re-running a sweep after a
// partial failure or after a model edit is therefore always safe.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gharib85/Pibronic/internal/results"
)

// Decision is the outcome of evaluating one parameter point.
type Decision int

const (
	// Missing means no record exists yet.
	Missing Decision = iota
	// Corrupt means a record file exists but could not be parsed.
	Corrupt
	// Stale means the record was produced from different inputs.
	Stale
	// Incomplete means the record is fresh but lacks the key.
	Incomplete
	// Present means the record is fresh and holds the key.
	Present
)

func (d Decision) String() string {
	switch d {
	case Missing:
		return "missing"
	case Corrupt:
		return "corrupt"
	case Stale:
		return "stale"
	case Incomplete:
		return "incomplete"
	case Present:
		return "present"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Submit reports whether the decision calls for a job submission.
func (d Decision) Submit() bool {
	return d != Present
}

// Gate evaluates result records against expected input hashes.
type Gate struct {
	logger  *slog.Logger
	barrier Barrier
}

// New creates a Gate. A nil logger uses slog.Default().
func New(logger *slog.Logger, barrier Barrier) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger, barrier: barrier.withDefaults()}
}

// Decide classifies the record at path for key.
// Only unexpected I/O failures are returned as errors.
func (g *Gate) Decide(ctx context.Context, path, expectedHash, key string) (Decision, error) {
	rec, err := results.Load(path)
	switch {
	case errors.Is(err, results.ErrNotFound):
		return Missing, nil
	case results.IsValidationFailure(err):
		// Distinct from absence: something wrote a broken file earlier.
		g.logger.WarnContext(ctx, "corrupt result record, treating as missing",
			"path", path, "error", err)
		return Corrupt, nil
	case err != nil:
		return Missing, fmt.Errorf("gate: %w", err)
	}

	if !results.Validate(rec, expectedHash) {
		g.logger.DebugContext(ctx, "stale result record",
			"path", path, "record_hash", rec.Hash, "expected_hash", expectedHash)
		return Stale, nil
	}
	if rec.Has(key) {
		return Present, nil
	}
	return Incomplete, nil
}

// ShouldSubmit reports whether a job must be submitted for key at path.
func (g *Gate) ShouldSubmit(ctx context.Context, path, expectedHash, key string) (bool, error) {
	d, err := g.Decide(ctx, path, expectedHash, key)
	if err != nil {
		return false, err
	}
	return d.Submit(), nil
}

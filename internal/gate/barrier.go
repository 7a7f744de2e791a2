package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Barrier bounds how long Await polls for a job's output.
type Barrier struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// DefaultBarrier returns the polling bounds used when none are configured.
func DefaultBarrier() Barrier {
	return Barrier{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Timeout:         10 * time.Minute,
	}
}

func (b Barrier) withDefaults() Barrier {
	def := DefaultBarrier()
	if b.InitialInterval <= 0 {
		b.InitialInterval = def.InitialInterval
	}
	if b.MaxInterval <= 0 {
		b.MaxInterval = def.MaxInterval
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	if b.Timeout <= 0 {
		b.Timeout = def.Timeout
	}
	return b
}

// CompletionTimeoutError is returned when a job's output did not appear
// within the barrier timeout. The job itself may still be running.
type CompletionTimeoutError struct {
	Path   string
	Key    string
	Waited time.Duration
	// Last is the final observed state of the record.
	Last Decision
}

func (e *CompletionTimeoutError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("timed out after %s waiting for %s in %s (last state: %s)", e.Waited, e.Key, e.Path, e.Last)
	}
	return fmt.Sprintf("timed out after %s waiting for %s (last state: %s)", e.Waited, e.Path, e.Last)
}

// IsCompletionTimeout reports whether err is a CompletionTimeoutError.
func IsCompletionTimeout(err error) bool {
	var cte *CompletionTimeoutError
	return errors.As(err, &cte)
}

var errNotReady = errors.New("not ready")

// Await blocks until the record at path is fresh and holds key, polling with
// exponential backoff. This is the completion signal between a finished job
// and the filesystem.
func (g *Gate) Await(ctx context.Context, path, expectedHash, key string) error {
	last := Missing
	err := g.poll(ctx, func() error {
		d, err := g.Decide(ctx, path, expectedHash, key)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = d
		if d != Present {
			return errNotReady
		}
		return nil
	})
	if errors.Is(err, errNotReady) {
		return &CompletionTimeoutError{Path: path, Key: key, Waited: g.barrier.Timeout, Last: last}
	}
	return err
}

// AwaitFile blocks until path exists and holds a complete JSON document.
//
// prior is the file as it was before the job started, or nil if it did not
// exist. A file that is still prior, unmodified, does not count.
func (g *Gate) AwaitFile(ctx context.Context, path string, prior os.FileInfo) error {
	last := Missing
	err := g.poll(ctx, func() error {
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return errNotReady
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("await %s: %w", path, err))
		}
		if prior != nil && os.SameFile(prior, info) && !info.ModTime().After(prior.ModTime()) {
			last = Stale
			return errNotReady
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return errNotReady
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("await %s: %w", path, err))
		}
		if !json.Valid(data) {
			// Writer may still be mid-file.
			last = Corrupt
			return errNotReady
		}
		return nil
	})
	if errors.Is(err, errNotReady) {
		return &CompletionTimeoutError{Path: path, Waited: g.barrier.Timeout, Last: last}
	}
	return err
}

func (g *Gate) poll(ctx context.Context, check func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.barrier.InitialInterval
	b.MaxInterval = g.barrier.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, check()
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(g.barrier.Timeout),
	)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("await cancelled: %w", ctx.Err())
	}
	return err
}

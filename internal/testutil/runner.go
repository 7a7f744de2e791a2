// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gharib85/Pibronic/internal/scheduler"
)

// FakeRunner records commands instead of executing them.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeRunner struct {
	mu       sync.Mutex
	started  []string
	ran      []string
	output   scheduler.Output
	startErr error
	runErr   error
	// failOn makes Start fail for commands containing any of these strings.
	failOn []string
	onRun  func(command string)
}

// NewFakeRunner creates a runner whose Run returns empty output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// SetOutput sets what Run returns.
func (r *FakeRunner) SetOutput(stdout, stderr string, exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output = scheduler.Output{Stdout: []byte(stdout), Stderr: []byte(stderr), ExitCode: exitCode}
}

// FailStart makes every Start return err.
func (r *FakeRunner) FailStart(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

// FailStartOn makes Start fail for commands containing substr.
func (r *FakeRunner) FailStartOn(substr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn = append(r.failOn, substr)
}

// FailRun makes every Run return err.
func (r *FakeRunner) FailRun(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runErr = err
}

// Start records command.
func (r *FakeRunner) Start(command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	for _, s := range r.failOn {
		if strings.Contains(command, s) {
			return errors.New("scheduler rejected job")
		}
	}
	r.started = append(r.started, command)
	return nil
}

// OnRun registers fn to be called with each command Run accepts, after it
// is recorded. Tests use it to produce the job's output files.
func (r *FakeRunner) OnRun(fn func(command string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRun = fn
}

// Run records command and returns the configured output.
func (r *FakeRunner) Run(ctx context.Context, command string) (*scheduler.Output, error) {
	r.mu.Lock()
	if err := ctx.Err(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if r.runErr != nil {
		r.mu.Unlock()
		return nil, r.runErr
	}
	r.ran = append(r.ran, command)
	out := r.output
	hook := r.onRun
	r.mu.Unlock()

	if hook != nil {
		hook(command)
	}
	return &out, nil
}

// Started returns a copy of the commands passed to Start.
func (r *FakeRunner) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

// Ran returns a copy of the commands passed to Run.
func (r *FakeRunner) Ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

// Reset forgets recorded commands. Configured failures are kept.
func (r *FakeRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = nil
	r.ran = nil
}

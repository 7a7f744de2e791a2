package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// Output is what a synchronous run produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes rendered scheduler commands.
type Runner interface {
	// Start launches command and returns once it is running.
	Start(command string) error
	// Run executes command to completion. A non-zero exit status is reported
	// in Output, not as an error.
	Run(ctx context.Context, command string) (*Output, error)
}

// ExecRunner runs commands through a local shell.
//
// A nil error from Start means the shell was launched, not that the scheduler
// accepted the job.
type ExecRunner struct {
	// Shell interprets the command string. Defaults to "sh".
	Shell string
	// Program, if set, must resolve on PATH before any command runs.
	Program string
	// Stdout and Stderr receive output of Start-ed commands. Nil discards.
	Stdout io.Writer
	Stderr io.Writer

	Logger *slog.Logger
}

func (r *ExecRunner) shell() string {
	if r.Shell == "" {
		return "sh"
	}
	return r.Shell
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *ExecRunner) checkProgram() error {
	if r.Program == "" {
		return nil
	}
	if _, err := exec.LookPath(r.Program); err != nil {
		return fmt.Errorf("scheduler program unavailable: %w", err)
	}
	return nil
}

// Start launches command detached from any context; it cannot be cancelled.
// The process is reaped in the background.
func (r *ExecRunner) Start(command string) error {
	if err := r.checkProgram(); err != nil {
		return err
	}
	cmd := exec.Command(r.shell(), "-c", command)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	pid := cmd.Process.Pid
	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger().Debug("detached submission exited", "pid", pid, "error", err)
		}
	}()
	return nil
}

// Run executes command and captures both streams.
func (r *ExecRunner) Run(ctx context.Context, command string) (*Output, error) {
	if err := r.checkProgram(); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, r.shell(), "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"time"
)

// DefaultOOMMarkers are stderr substrings that mean the job ran out of
// memory.
var DefaultOOMMarkers = []string{"Out Of Memory"}

// Config controls command rendering and outcome classification.
type Config struct {
	Program     string
	Interpreter string
	OOMMarkers  []string
}

// DefaultConfig returns the Slurm/python3 configuration.
func DefaultConfig() Config {
	return Config{
		Program:     "srun",
		Interpreter: "python3",
		OOMMarkers:  append([]string(nil), DefaultOOMMarkers...),
	}
}

// Dispatcher submits requests through a Runner.
// Safe for concurrent use if the Runner is.
type Dispatcher struct {
	runner  Runner
	builder CommandBuilder
	markers []string
	ids     IDGenerator
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIDGenerator overrides handle id generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Dispatcher) { d.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher. Empty config fields fall back to
// DefaultConfig.
func NewDispatcher(runner Runner, cfg Config, opts ...Option) *Dispatcher {
	def := DefaultConfig()
	if cfg.Program == "" {
		cfg.Program = def.Program
	}
	if cfg.Interpreter == "" {
		cfg.Interpreter = def.Interpreter
	}
	if len(cfg.OOMMarkers) == 0 {
		cfg.OOMMarkers = def.OOMMarkers
	}

	d := &Dispatcher{
		runner:  runner,
		builder: CommandBuilder{Program: cfg.Program, Interpreter: cfg.Interpreter},
		markers: cfg.OOMMarkers,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Command renders req without submitting it.
func (d *Dispatcher) Command(req Request) string {
	return d.builder.Build(req)
}

// Submit sends req to the scheduler.
//
// Async: returns once the command has started. Sync: returns after the job
// finishes; a ResourceExhaustedError if stderr carries an out-of-memory
// marker, otherwise the captured output whatever the exit status.
// Failure to launch the command is a SubmissionError in both modes.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (*Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, &SubmissionError{JobName: req.JobName, Err: err}
	}

	command := d.builder.Build(req)
	h := &Handle{
		ID:          d.ids.Generate(),
		JobName:     req.JobName,
		Command:     command,
		Mode:        req.Mode,
		SubmittedAt: d.now(),
	}
	d.logger.DebugContext(ctx, "submitting job", "job", req.JobName, "mode", req.Mode, "id", h.ID)

	if req.Mode == Async {
		if err := d.runner.Start(command); err != nil {
			return nil, &SubmissionError{JobName: req.JobName, Command: command, Err: err}
		}
		d.logger.InfoContext(ctx, "job submitted", "job", req.JobName, "id", h.ID)
		return h, nil
	}

	out, err := d.runner.Run(ctx, command)
	if err != nil {
		return nil, &SubmissionError{JobName: req.JobName, Command: command, Err: err}
	}
	h.Stdout, h.Stderr, h.ExitCode = out.Stdout, out.Stderr, out.ExitCode

	if marker, ok := d.exhausted(out.Stderr); ok {
		return nil, &ResourceExhaustedError{
			JobName: req.JobName,
			Marker:  marker,
			Stdout:  out.Stdout,
			Stderr:  out.Stderr,
		}
	}

	d.logger.InfoContext(ctx, "job finished", "job", req.JobName, "id", h.ID, "exit_code", out.ExitCode)
	return h, nil
}

func (d *Dispatcher) exhausted(stderr []byte) (string, bool) {
	for _, m := range d.markers {
		if m != "" && bytes.Contains(stderr, []byte(m)) {
			return m, true
		}
	}
	return "", false
}

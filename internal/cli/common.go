package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gharib85/Pibronic/internal/config"
	"github.com/gharib85/Pibronic/internal/gate"
	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/ledger"
	"github.com/gharib85/Pibronic/internal/scheduler"
	"github.com/gharib85/Pibronic/internal/sweep"
)

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// loadConfig reads --config (defaults when unset) and applies --root.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.Root != "" {
		cfg.Root = o.Root
	}
	if cfg.Root == "" {
		return nil, errors.New("no results root: set root in the config file or pass --root")
	}
	return cfg, nil
}

func (o *RootOptions) runner(cmd *cobra.Command, program string) scheduler.Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return &scheduler.ExecRunner{
		Program: program,
		Stdout:  cmd.ErrOrStderr(),
		Stderr:  cmd.ErrOrStderr(),
		Logger:  o.logger(),
	}
}

// newDriver wires the dispatcher, gate and optional ledger for cfg. The
// returned close function releases the ledger.
func (o *RootOptions) newDriver(cmd *cobra.Command, cfg *config.Config) (*sweep.Driver, func(), error) {
	disp := scheduler.NewDispatcher(o.runner(cmd, cfg.Scheduler.Program), cfg.Scheduler.Dispatcher(), scheduler.WithLogger(o.logger()))
	g := gate.New(o.logger(), cfg.Barrier)

	driverOpts := []sweep.Option{
		sweep.WithLogger(o.logger()),
		sweep.WithMemory(cfg.Scheduler.Memory),
	}
	closeFn := func() {}
	if cfg.Ledger != "" {
		l, err := ledger.Open(cfg.Ledger)
		if err != nil {
			return nil, nil, err
		}
		driverOpts = append(driverOpts, sweep.WithRecorder(l))
		closeFn = func() {
			if err := l.Close(); err != nil {
				o.logger().Error("error closing ledger", "error", err)
			}
		}
	}

	return sweep.NewDriver(cfg.Systems, disp, g, driverOpts...), closeFn, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// classify maps a command error to an exit code and response code.
func classify(err error) (int, string) {
	switch {
	case layout.IsInvalidRoot(err):
		return ExitCommandError, ErrCodeInvalidRoot
	case config.IsUnknownVariant(err):
		return ExitCommandError, ErrCodeVariant
	case gate.IsCompletionTimeout(err):
		return ExitFailure, ErrCodeTimeout
	case scheduler.IsSubmissionError(err), scheduler.IsResourceExhausted(err):
		return ExitFailure, ErrCodeSubmission
	default:
		return ExitFailure, ErrCodeGeneric
	}
}

// fail reports err through f and returns it with an exit code attached.
func fail(f *OutputFormatter, code int, errCode, message string, err error) error {
	msg := message
	if err != nil {
		msg = message + ": " + err.Error()
	}
	_ = f.Error(errCode, msg, nil)
	return WrapExitError(code, message, err)
}

// failClassified is fail with the code derived from err.
func failClassified(f *OutputFormatter, message string, err error) error {
	code, errCode := classify(err)
	return fail(f, code, errCode, message, err)
}

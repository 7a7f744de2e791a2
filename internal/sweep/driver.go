package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gharib85/Pibronic/internal/config"
	"github.com/gharib85/Pibronic/internal/fingerprint"
	"github.com/gharib85/Pibronic/internal/gate"
	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/ledger"
	"github.com/gharib85/Pibronic/internal/remote"
	"github.com/gharib85/Pibronic/internal/results"
	"github.com/gharib85/Pibronic/internal/scheduler"
)

// Submitter hands requests to the batch scheduler.
type Submitter interface {
	Submit(ctx context.Context, req scheduler.Request) (*scheduler.Handle, error)
}

// Recorder stores an audit entry per submission attempt.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) error
}

var (
	_ Submitter = (*scheduler.Dispatcher)(nil)
	_ Recorder  = (*ledger.Ledger)(nil)
)

// Driver runs sweeps. It holds no per-run state and is safe for concurrent
// use when its Submitter and Recorder are.
type Driver struct {
	systems   config.Systems
	submitter Submitter
	gate      *gate.Gate
	recorder  Recorder
	ids       scheduler.IDGenerator
	memory    string
	logger    *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder records every submission attempt.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithMemory sets the memory request for model-solving jobs.
// Default: config.DefaultMemory. Analytic jobs never request memory.
func WithMemory(m string) Option {
	return func(d *Driver) { d.memory = m }
}

// WithIDGenerator sets the generator for ledger ids of rejected submissions.
func WithIDGenerator(g scheduler.IDGenerator) Option {
	return func(d *Driver) { d.ids = g }
}

// NewDriver creates a Driver over an immutable systems table.
func NewDriver(systems config.Systems, submitter Submitter, g *gate.Gate, opts ...Option) *Driver {
	d := &Driver{
		systems:   systems,
		submitter: submitter,
		gate:      g,
		ids:       scheduler.UUIDv7Generator{},
		memory:    config.DefaultMemory,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.gate == nil {
		d.gate = gate.New(d.logger, gate.DefaultBarrier())
	}
	return d
}

// Run visits every point of spec for the datasets of sel.Variant.
//
// The returned error is non-nil only for configuration problems or context
// cancellation; per-point failures are in the Summary.
func (d *Driver) Run(ctx context.Context, sel Selector, spec Spec) (*Summary, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.dedupe()
	datasets, err := d.systems.Datasets(sel.Variant)
	if err != nil {
		return nil, err
	}

	logger := d.logger.With("variant", sel.Variant)
	logger.InfoContext(ctx, "sweep started", "datasets", len(datasets), "mode", spec.Mode)

	sum := &Summary{Variant: sel.Variant}
	for _, datasetID := range datasets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ns, err := layout.Resolve(sel.Root, datasetID, 0)
		if err != nil {
			if layout.IsInvalidRoot(err) {
				return sum, err
			}
			logger.ErrorContext(ctx, "cannot prepare dataset", "dataset", datasetID, "error", err)
			sum.add(Point{Variant: sel.Variant, DatasetID: datasetID, Outcome: Failed, Err: err})
			continue
		}
		if err := d.runDataset(ctx, logger, sel, spec, ns, sum); err != nil {
			return sum, err
		}
	}

	logger.InfoContext(ctx, "sweep finished",
		"submitted", sum.Submitted, "skipped", sum.Skipped, "failed", sum.Failed, "pending", sum.Pending)
	return sum, nil
}

// job is a point plus everything needed to gate and submit it.
type job struct {
	point      Point
	hash       string
	hashErr    error
	invocation string
	resources  scheduler.Resources
}

func (d *Driver) runDataset(ctx context.Context, logger *slog.Logger, sel Selector, spec Spec, ns *layout.Namespace, sum *Summary) error {
	target := remote.TargetOf(ns)
	coupled, coupledErr := fingerprint.ModelHash(ns.CoupledModel())
	base := Point{Variant: sel.Variant, DatasetID: ns.DatasetID()}
	resources := scheduler.Resources{Memory: d.memory}

	for _, kind := range spec.Kinds {
		switch kind {
		case KindSOS:
			for _, b := range spec.BasisSizes {
				for _, t := range spec.Temperatures {
					p := base
					p.Kind, p.BasisSize, p.Temperature = kind, b, t
					p.Path, p.Key = ns.SOSParameters(b), results.TemperatureKey(t)
					p.JobName = remote.SOSJobName(ns.DatasetID(), t)
					if err := d.visit(ctx, logger, spec, sum, job{
						point: p, hash: coupled, hashErr: coupledErr,
						invocation: remote.SOS(target, t, b), resources: resources,
					}); err != nil {
						return err
					}
				}
			}
		case KindTrotter:
			for _, b := range spec.BasisSizes {
				for _, t := range spec.Temperatures {
					for _, beads := range spec.BeadCounts {
						p := base
						p.Kind, p.BasisSize, p.Temperature, p.BeadCount = kind, b, t, beads
						p.Path, p.Key = ns.TrotterParameters(beads, b), results.TemperatureKey(t)
						p.JobName = remote.TrotterJobName(ns.DatasetID(), beads, t)
						if err := d.visit(ctx, logger, spec, sum, job{
							point: p, hash: coupled, hashErr: coupledErr,
							invocation: remote.Trotter(target, t, beads, b), resources: resources,
						}); err != nil {
							return err
						}
					}
				}
			}
		case KindAnalytic:
			if err := d.runAnalytic(ctx, logger, sel, spec, ns, base, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) runAnalytic(ctx context.Context, logger *slog.Logger, sel Selector, spec Spec, ns *layout.Namespace, base Point, sum *Summary) error {
	dists, err := d.systems.Distributions(sel.Variant, ns.DatasetID())
	if err != nil {
		return err
	}
	for _, r := range dists {
		nsR, err := ns.WithDistribution(r)
		if err != nil {
			if layout.IsInvalidRoot(err) {
				return err
			}
			logger.ErrorContext(ctx, "cannot prepare distribution",
				"dataset", ns.DatasetID(), "distribution", r, "error", err)
			p := base
			p.Kind, p.DistributionID, p.Outcome, p.Err = KindAnalytic, r, Failed, err
			sum.add(p)
			continue
		}
		sampling, samplingErr := fingerprint.ModelHash(nsR.SamplingModel())
		target := remote.TargetOf(nsR)
		for _, t := range spec.Temperatures {
			p := base
			p.Kind, p.DistributionID, p.Temperature = KindAnalytic, r, t
			p.Path, p.Key = nsR.AnalyticResults(), results.TemperatureKey(t)
			p.JobName = remote.AnalyticJobName(nsR.DatasetID(), r, t)
			if err := d.visit(ctx, logger, spec, sum, job{
				point: p, hash: sampling, hashErr: samplingErr,
				invocation: remote.Analytic(target, t),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// visit gates and submits one point. It returns an error only when ctx is
// done.
func (d *Driver) visit(ctx context.Context, logger *slog.Logger, spec Spec, sum *Summary, j job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := j.point
	attrs := []any{"kind", p.Kind, "dataset", p.DatasetID, "path", p.Path, "key", p.Key}
	if p.Kind == KindAnalytic {
		attrs = append(attrs, "distribution", p.DistributionID)
	}

	if j.hashErr != nil {
		p.Outcome, p.Err = Failed, fmt.Errorf("fingerprint model: %w", j.hashErr)
		logger.ErrorContext(ctx, "cannot fingerprint model", append(attrs, "error", j.hashErr)...)
		sum.add(p)
		return nil
	}

	decision, err := d.gate.Decide(ctx, p.Path, j.hash, p.Key)
	if err != nil {
		p.Outcome, p.Err = Failed, err
		logger.ErrorContext(ctx, "cannot evaluate result record", append(attrs, "error", err)...)
		sum.add(p)
		return nil
	}
	p.Decision = decision
	if !decision.Submit() {
		p.Outcome = Skipped
		logger.DebugContext(ctx, "result present, skipping", attrs...)
		sum.add(p)
		return nil
	}
	if spec.DryRun {
		p.Outcome = Pending
		logger.InfoContext(ctx, "would submit", append(attrs, "job", p.JobName, "decision", decision)...)
		sum.add(p)
		return nil
	}

	req := scheduler.Request{
		JobName:    p.JobName,
		Resources:  j.resources,
		Invocation: j.invocation,
		Mode:       spec.Mode,
	}
	h, err := d.submitter.Submit(ctx, req)
	d.record(ctx, p, req, h, err)
	if err != nil {
		p.Outcome, p.Err = Failed, err
		if scheduler.IsResourceExhausted(err) {
			logger.ErrorContext(ctx, "job ran out of memory", append(attrs, "job", p.JobName, "error", err)...)
		} else {
			logger.ErrorContext(ctx, "submission failed", append(attrs, "job", p.JobName, "error", err)...)
		}
		sum.add(p)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		return nil
	}

	p.JobID = h.ID
	if h.Mode == scheduler.Sync {
		if err := d.awaitResult(ctx, logger, attrs, j, h); err != nil {
			p.Outcome, p.Err = Failed, err
			sum.add(p)
			return ctx.Err()
		}
	}
	p.Outcome = Submitted
	sum.add(p)
	return nil
}

// awaitResult holds a finished Sync job until its record entry is visible.
// A job that exited non-zero is not waited on; the next run sees whatever it
// left behind.
func (d *Driver) awaitResult(ctx context.Context, logger *slog.Logger, attrs []any, j job, h *scheduler.Handle) error {
	p := j.point
	if h.ExitCode != 0 {
		logger.WarnContext(ctx, "job exited with non-zero status",
			append(attrs, "job", p.JobName, "exit_code", h.ExitCode)...)
		return nil
	}
	if err := d.gate.Await(ctx, p.Path, j.hash, p.Key); err != nil {
		logger.ErrorContext(ctx, "job finished but its result did not appear",
			append(attrs, "job", p.JobName, "error", err)...)
		return err
	}
	return nil
}

func (d *Driver) record(ctx context.Context, p Point, req scheduler.Request, h *scheduler.Handle, subErr error) {
	if d.recorder == nil {
		return
	}

	e := ledger.Entry{
		JobName:        req.JobName,
		Kind:           string(p.Kind),
		Variant:        p.Variant,
		DatasetID:      p.DatasetID,
		DistributionID: p.DistributionID,
		ParameterKey:   p.Key,
		ArtifactPath:   p.Path,
		Mode:           req.Mode.String(),
	}
	switch {
	case subErr == nil:
		e.ID, e.Command, e.SubmittedAt = h.ID, h.Command, h.SubmittedAt
		e.Outcome = ledger.OutcomeAccepted
		if h.Mode == scheduler.Sync {
			e.Outcome = ledger.OutcomeCompleted
		}
	case scheduler.IsResourceExhausted(subErr):
		e.ID, e.Outcome, e.Error = d.ids.Generate(), ledger.OutcomeResourceExhausted, subErr.Error()
	default:
		e.ID, e.Outcome, e.Error = d.ids.Generate(), ledger.OutcomeRejected, subErr.Error()
		var se *scheduler.SubmissionError
		if errors.As(subErr, &se) {
			e.Command = se.Command
		}
	}

	if err := d.recorder.Record(ctx, e); err != nil {
		d.logger.WarnContext(ctx, "cannot record submission", "job", req.JobName, "error", err)
	}
}

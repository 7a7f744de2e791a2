package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gharib85/Pibronic/internal/config"
	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/scheduler"
	"github.com/gharib85/Pibronic/internal/sweep"
)

// sweepFlags are the parameter-space flags shared by sweep and check.
// Each overrides the config value only when set.
type sweepFlags struct {
	variants     []string
	kinds        []string
	temperatures []float64
	basisSizes   []int
	beadCounts   []int
	mode         string
	ledger       string
	memory       string
}

func (f *sweepFlags) bind(cmd *cobra.Command, submits bool) {
	cmd.Flags().StringSliceVar(&f.variants, "variant", nil, "system variants to sweep (default: all configured)")
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "job kinds: sos, trotter, analytic")
	cmd.Flags().Float64SliceVarP(&f.temperatures, "temperature", "T", nil, "temperatures in kelvin")
	cmd.Flags().IntSliceVarP(&f.basisSizes, "basis", "B", nil, "basis sizes")
	cmd.Flags().IntSliceVarP(&f.beadCounts, "beads", "P", nil, "bead counts (trotter)")
	if submits {
		cmd.Flags().StringVar(&f.mode, "mode", "", "submission mode: async or sync")
		cmd.Flags().StringVar(&f.ledger, "ledger", "", "submission ledger database (overrides config)")
		cmd.Flags().StringVar(&f.memory, "memory", "", "memory request per job (overrides config)")
	}
}

// apply folds the flags into cfg and returns the variants and spec to run.
func (f *sweepFlags) apply(cmd *cobra.Command, cfg *config.Config) ([]string, sweep.Spec, error) {
	sc := cfg.Sweep
	kindNames := sc.Kinds
	if cmd.Flags().Changed("kind") {
		kindNames = f.kinds
	}
	if len(kindNames) == 0 {
		kindNames = []string{string(sweep.KindSOS)}
	}
	kinds, err := sweep.ParseKinds(kindNames)
	if err != nil {
		return nil, sweep.Spec{}, err
	}

	spec := sweep.Spec{
		Kinds:        kinds,
		Temperatures: sc.Temperatures,
		BasisSizes:   sc.BasisSizes,
		BeadCounts:   sc.BeadCounts,
		Mode:         sc.Mode,
	}
	if cmd.Flags().Changed("temperature") {
		spec.Temperatures = f.temperatures
	}
	if cmd.Flags().Changed("basis") {
		spec.BasisSizes = f.basisSizes
	}
	if cmd.Flags().Changed("beads") {
		spec.BeadCounts = f.beadCounts
	}
	if f.mode != "" {
		if spec.Mode, err = scheduler.ParseMode(f.mode); err != nil {
			return nil, sweep.Spec{}, err
		}
	}
	if f.ledger != "" {
		cfg.Ledger = f.ledger
	}
	if f.memory != "" {
		cfg.Scheduler.Memory = f.memory
	}

	variants := f.variants
	if len(variants) == 0 {
		variants = cfg.Systems.Variants()
	}
	if len(variants) == 0 {
		return nil, sweep.Spec{}, fmt.Errorf("no variants: configure systems or pass --variant")
	}
	return variants, spec, nil
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sweepFlags{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Submit jobs for every missing point of the parameter space",
		Long: `Sweep every dataset of the selected variants over the configured kinds,
basis sizes, temperatures and bead counts, submitting a job for each point
whose result is missing, stale or corrupt.

Variants run concurrently. A point that fails is reported and the sweep
carries on; the command then exits with status 1.

Example:
  pibronic sweep -c pibronic.yaml
  pibronic sweep -c pibronic.yaml --variant displaced --kind sos -T 300 -B 80
  pibronic sweep --root /data/pibronic -c systems.cue --kind trotter -P 10,50 --mode sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, flags, cmd, false)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sweepFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which points a sweep would submit",
		Long: `Evaluate every point of the parameter space against the result records on
disk without submitting anything. Each point is reported as missing, corrupt,
stale, incomplete or present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, flags, cmd, true)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func runSweep(opts *RootOptions, flags *sweepFlags, cmd *cobra.Command, dryRun bool) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	variants, spec, err := flags.apply(cmd, cfg)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, "invalid sweep", err)
	}
	spec.DryRun = dryRun
	if dryRun {
		cfg.Ledger = ""
	}

	driver, closeDriver, err := opts.newDriver(cmd, cfg)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer closeDriver()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	sums, err := driver.RunVariants(ctx, cfg.Root, variants, spec)
	if err != nil {
		if layout.IsInvalidRoot(err) || config.IsUnknownVariant(err) {
			return failClassified(f, "sweep aborted", err)
		}
		if len(sums) == 0 {
			return failClassified(f, "sweep failed", err)
		}
		opts.logger().Error("sweep interrupted", "error", err)
	}

	report := newSweepReport(cfg.Root, sums)
	if outErr := f.Success(report); outErr != nil {
		return WrapExitError(ExitFailure, "failed to write output", outErr)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "sweep interrupted", err)
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d point(s) failed", report.Failed))
	}
	return nil
}

// SweepReport is the output of sweep and check.
type SweepReport struct {
	Root      string          `json:"root"`
	Submitted int             `json:"submitted"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Pending   int             `json:"pending"`
	Variants  []VariantReport `json:"variants"`
}

// VariantReport summarises one variant.
type VariantReport struct {
	Variant   string        `json:"variant"`
	Submitted int           `json:"submitted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	Points    []PointReport `json:"points"`
}

// PointReport is one visited point.
type PointReport struct {
	Kind         string  `json:"kind,omitempty"`
	Dataset      int     `json:"dataset"`
	Distribution int     `json:"distribution"`
	Temperature  float64 `json:"temperature,omitempty"`
	BasisSize    int     `json:"basis_size,omitempty"`
	BeadCount    int     `json:"bead_count,omitempty"`
	Path         string  `json:"path,omitempty"`
	Key          string  `json:"key,omitempty"`
	Decision     string  `json:"decision,omitempty"`
	Outcome      string  `json:"outcome"`
	Job          string  `json:"job,omitempty"`
	JobID        string  `json:"job_id,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func newSweepReport(root string, sums map[string]*sweep.Summary) *SweepReport {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	r := &SweepReport{Root: root, Variants: []VariantReport{}}
	for _, name := range names {
		s := sums[name]
		v := VariantReport{
			Variant:   name,
			Submitted: s.Submitted,
			Skipped:   s.Skipped,
			Failed:    s.Failed,
			Pending:   s.Pending,
			Points:    make([]PointReport, 0, len(s.Points)),
		}
		for _, p := range s.Points {
			pr := PointReport{
				Kind:         string(p.Kind),
				Dataset:      p.DatasetID,
				Distribution: p.DistributionID,
				Temperature:  p.Temperature,
				BasisSize:    p.BasisSize,
				BeadCount:    p.BeadCount,
				Path:         p.Path,
				Key:          p.Key,
				Outcome:      p.Outcome.String(),
				Job:          p.JobName,
				JobID:        p.JobID,
			}
			if p.Path != "" && p.Err == nil {
				pr.Decision = p.Decision.String()
			}
			if p.Err != nil {
				pr.Error = p.Err.Error()
			}
			v.Points = append(v.Points, pr)
		}
		r.Submitted += v.Submitted
		r.Skipped += v.Skipped
		r.Failed += v.Failed
		r.Pending += v.Pending
		r.Variants = append(r.Variants, v)
	}
	return r
}

// RenderText prints one line per point that needs attention, then totals.
// Skipped points are listed only as a count.
func (r *SweepReport) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range r.Variants {
		for _, p := range v.Points {
			if p.Outcome == sweep.Skipped.String() {
				continue
			}
			detail := p.Job
			if p.Error != "" {
				detail = p.Error
			}
			fmt.Fprintf(tw, "%s\t%s\tD%d\tR%d\t%s\t%s\t%s\n",
				p.Outcome, v.Variant, p.Dataset, p.Distribution, p.Kind, p.Key, detail)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "submitted %d, skipped %d, failed %d, pending %d\n",
		r.Submitted, r.Skipped, r.Failed, r.Pending)
	return err
}

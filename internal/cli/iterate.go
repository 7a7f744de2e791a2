package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/sweep"
)

// IterateOptions holds flags for the iterate command.
type IterateOptions struct {
	*RootOptions
	Datasets   []int
	Variant    string
	Iterations int
	Ledger     string
}

// IterateReport lists one result per dataset.
type IterateReport struct {
	Results []IterateResult `json:"results"`
}

// IterateResult is the outcome of one iterative job.
type IterateResult struct {
	Dataset  int    `json:"dataset"`
	Job      string `json:"job,omitempty"`
	JobID    string `json:"job_id,omitempty"`
	ExitCode int    `json:"exit_code"`
	Model    string `json:"model"`
	Error    string `json:"error,omitempty"`
}

// NewIterateCommand creates the iterate command.
func NewIterateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IterateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "iterate",
		Short: "Generate iterative sampling models",
		Long: `Run the iterative sampling-model job for each dataset, one at a time.

Each job runs interactively and the command waits until the model file is
readable on disk, up to the configured barrier timeout.

Example:
  pibronic iterate --root /data/pibronic --dataset 3
  pibronic iterate -c pibronic.yaml --variant displaced --iterations 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIterate(opts, cmd)
		},
	}

	cmd.Flags().IntSliceVar(&opts.Datasets, "dataset", nil, "dataset ids")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "iterate every dataset of this variant")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", sweep.DefaultIterations, "iterations per job")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "submission ledger database (overrides config)")
	cmd.MarkFlagsMutuallyExclusive("dataset", "variant")
	cmd.MarkFlagsOneRequired("dataset", "variant")

	return cmd
}

func runIterate(opts *IterateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Ledger != "" {
		cfg.Ledger = opts.Ledger
	}

	datasets := opts.Datasets
	if opts.Variant != "" {
		if datasets, err = cfg.Systems.Datasets(opts.Variant); err != nil {
			return fail(f, ExitCommandError, ErrCodeVariant, "unknown variant", err)
		}
	}

	driver, closeDriver, err := opts.newDriver(cmd, cfg)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer closeDriver()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report := &IterateReport{Results: []IterateResult{}}
	failed := 0
	for _, d := range datasets {
		if ctx.Err() != nil {
			break
		}
		res := IterateResult{Dataset: d}
		h, err := driver.Iterate(ctx, cfg.Root, d, opts.Iterations)
		if h != nil {
			res.Job, res.JobID, res.ExitCode = h.JobName, h.ID, h.ExitCode
		}
		if err != nil {
			if layout.IsInvalidRoot(err) {
				return failClassified(f, "invalid root", err)
			}
			failed++
			res.Error = err.Error()
			opts.logger().Error("iterative job failed", "dataset", d, "error", err)
		}
		if ns, nsErr := layout.Resolve(cfg.Root, d, 0); nsErr == nil {
			res.Model = ns.IterativeModel()
		}
		report.Results = append(report.Results, res)
	}

	if err := f.Success(report); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	if ctx.Err() != nil {
		return WrapExitError(ExitFailure, "iterate interrupted", ctx.Err())
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d iterative job(s) failed", failed))
	}
	return nil
}

// RenderText prints one line per dataset.
func (r *IterateReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		if res.Error != "" {
			fmt.Fprintf(w, "D%d\tfailed\t%s\n", res.Dataset, res.Error)
			continue
		}
		fmt.Fprintf(w, "D%d\tready\t%s\n", res.Dataset, res.Model)
	}
	return nil
}

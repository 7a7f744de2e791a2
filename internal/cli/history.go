package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gharib85/Pibronic/internal/config"
	"github.com/gharib85/Pibronic/internal/ledger"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Ledger       string
	Dataset      int
	Distribution int
	Kind         string
	Outcome      string
	Limit        int
}

// HistoryReport is the list of recorded submissions.
type HistoryReport struct {
	Ledger      string         `json:"ledger"`
	Submissions []HistoryEntry `json:"submissions"`
}

// HistoryEntry is one ledger row.
type HistoryEntry struct {
	ID           string `json:"id"`
	SubmittedAt  string `json:"submitted_at"`
	Job          string `json:"job"`
	Kind         string `json:"kind"`
	Variant      string `json:"variant,omitempty"`
	Dataset      int    `json:"dataset"`
	Distribution int    `json:"distribution"`
	Key          string `json:"key"`
	Mode         string `json:"mode"`
	Outcome      string `json:"outcome"`
	Command      string `json:"command,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded submissions",
		Long: `List the submissions recorded in the ledger, oldest first.

The ledger is an audit log only; sweeps never read it to decide what to
submit.

Example:
  pibronic history -c pibronic.yaml --dataset 3
  pibronic history --ledger ./ledger.db --outcome rejected --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "submission ledger database (overrides config)")
	cmd.Flags().IntVar(&opts.Dataset, "dataset", -1, "only this dataset")
	cmd.Flags().IntVar(&opts.Distribution, "distribution", -1, "only this distribution")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this kind")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only this outcome (accepted, completed, rejected, resource_exhausted)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	path := opts.Ledger
	if path == "" && opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		path = cfg.Ledger
	}
	if path == "" {
		return fail(f, ExitCommandError, ErrCodeLedger, "no ledger: set ledger in the config file or pass --ledger", nil)
	}

	l, err := ledger.Open(path)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			opts.logger().Error("error closing ledger", "error", closeErr)
		}
	}()

	filter := ledger.Filter{Kind: opts.Kind, Outcome: opts.Outcome, Limit: opts.Limit}
	if opts.Dataset >= 0 {
		filter.DatasetID = &opts.Dataset
	}
	if opts.Distribution >= 0 {
		filter.DistributionID = &opts.Distribution
	}

	entries, err := l.List(cmd.Context(), filter)
	if err != nil {
		return fail(f, ExitFailure, ErrCodeLedger, "failed to read ledger", err)
	}

	report := &HistoryReport{Ledger: path, Submissions: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		report.Submissions = append(report.Submissions, HistoryEntry{
			ID:           e.ID,
			SubmittedAt:  e.SubmittedAt.UTC().Format(time.RFC3339),
			Job:          e.JobName,
			Kind:         e.Kind,
			Variant:      e.Variant,
			Dataset:      e.DatasetID,
			Distribution: e.DistributionID,
			Key:          e.ParameterKey,
			Mode:         e.Mode,
			Outcome:      e.Outcome,
			Command:      e.Command,
			Error:        e.Error,
		})
	}

	if err := f.Success(report); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return nil
}

// RenderText prints one row per submission.
func (r *HistoryReport) RenderText(w io.Writer) error {
	if len(r.Submissions) == 0 {
		_, err := fmt.Fprintln(w, "no submissions recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tJOB\tKIND\tDATASET\tKEY\tMODE\tOUTCOME")
	for _, e := range r.Submissions {
		fmt.Fprintf(tw, "%s\t%s\t%s\tD%d_R%d\t%s\t%s\t%s\n",
			e.SubmittedAt, e.Job, e.Kind, e.Dataset, e.Distribution, e.Key, e.Mode, e.Outcome)
	}
	return tw.Flush()
}

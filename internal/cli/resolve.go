package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gharib85/Pibronic/internal/fingerprint"
	"github.com/gharib85/Pibronic/internal/layout"
)

// ResolveReport describes one namespace.
type ResolveReport struct {
	Root            string        `json:"root"`
	Dataset         int           `json:"dataset"`
	Distribution    int           `json:"distribution"`
	DatasetDir      string        `json:"dataset_dir"`
	DistributionDir string        `json:"distribution_dir"`
	Models          []ModelReport `json:"models"`
	PIMCResults     []string      `json:"pimc_results,omitempty"`
}

// ModelReport is one model file of a namespace.
type ModelReport struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var beads int
	var temperature float64

	cmd := &cobra.Command{
		Use:   "resolve <dataset> [distribution]",
		Short: "Create a namespace and print its paths",
		Long: `Create the directory tree of (root, dataset, distribution) if needed and
print where its models live, with the fingerprint of each model present.

With --beads and --temperature, also list the PIMC result files on disk for
that point.

Example:
  pibronic resolve --root /data/pibronic 3
  pibronic resolve --root /data/pibronic 3 1 -P 50 -T 300`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args, beads, temperature, cmd)
		},
	}

	cmd.Flags().IntVarP(&beads, "beads", "P", 0, "bead count of PIMC results to list")
	cmd.Flags().Float64VarP(&temperature, "temperature", "T", 0, "temperature of PIMC results to list")
	return cmd
}

func runResolve(opts *RootOptions, args []string, beads int, temperature float64, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	ids := make([]int, 2)
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeGeneric, "invalid id", fmt.Errorf("%q is not an integer", a))
		}
		ids[i] = n
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	ns, err := layout.Resolve(cfg.Root, ids[0], ids[1])
	if err != nil {
		if layout.IsInvalidRoot(err) {
			return fail(f, ExitCommandError, ErrCodeInvalidRoot, "invalid root", err)
		}
		return fail(f, ExitCommandError, ErrCodeGeneric, "failed to resolve namespace", err)
	}

	report := &ResolveReport{
		Root:            ns.Root(),
		Dataset:         ns.DatasetID(),
		Distribution:    ns.DistributionID(),
		DatasetDir:      ns.DatasetDir(),
		DistributionDir: ns.DistributionDir(),
		Models: []ModelReport{
			modelReport("coupled", ns.CoupledModel()),
			modelReport("harmonic", ns.HarmonicModel()),
			modelReport("sampling", ns.SamplingModel()),
			modelReport("iterative", ns.IterativeModel()),
		},
	}

	if beads > 0 && temperature > 0 {
		matches, err := ns.MatchPIMC(beads, temperature)
		if err != nil {
			return fail(f, ExitFailure, ErrCodeGeneric, "failed to list PIMC results", err)
		}
		report.PIMCResults = matches
	}

	if err := f.Success(report); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return nil
}

func modelReport(name, path string) ModelReport {
	m := ModelReport{Name: name, Path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return m
	}
	m.Exists = true
	hash, err := fingerprint.ModelHash(path)
	if err != nil {
		m.Error = err.Error()
		return m
	}
	m.Fingerprint = hash
	return m
}

// RenderText prints the namespace as key/value lines.
func (r *ResolveReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "dataset       %s\n", r.DatasetDir)
	fmt.Fprintf(w, "distribution  %s\n", r.DistributionDir)
	for _, m := range r.Models {
		state := "absent"
		switch {
		case m.Error != "":
			state = "unreadable: " + m.Error
		case m.Exists:
			state = m.Fingerprint
		}
		fmt.Fprintf(w, "%-13s %s (%s)\n", m.Name, m.Path, state)
	}
	for _, p := range r.PIMCResults {
		fmt.Fprintf(w, "pimc          %s\n", p)
	}
	return nil
}

// Package remote renders the interpreter statements embedded in scheduler
// submissions.
//
// The statements call into an externally installed package; this package only
// interpolates namespace coordinates and swept parameter values. The rendered
// text is a versioned contract: changing it changes what every future job
// executes, so bump TemplateVersion and update the golden files together.
package remote

import (
	"fmt"
	"strings"

	"github.com/gharib85/Pibronic/internal/layout"
)

// TemplateVersion identifies the statement templates below.
const TemplateVersion = "v1"

// preamble imports the symbols every job relies on.
var preamble = []string{
	"import pibronic",
	"from pibronic.data import file_structure as fs",
	"from pibronic import julia_wrapper as jw",
	"from pibronic.constants import beta",
}

// Target locates the namespace a job operates on.
type Target struct {
	Root           string
	DatasetID      int
	DistributionID int
}

// TargetOf builds a Target from a resolved namespace.
func TargetOf(ns *layout.Namespace) Target {
	return Target{Root: ns.Root(), DatasetID: ns.DatasetID(), DistributionID: ns.DistributionID()}
}

func (t Target) fileStructure() string {
	return fmt.Sprintf("FS = fs.FileStructure(%q, %d, %d)", t.Root, t.DatasetID, t.DistributionID)
}

func join(body ...string) string {
	stmts := make([]string, 0, len(preamble)+len(body))
	stmts = append(stmts, preamble...)
	stmts = append(stmts, body...)
	return strings.Join(stmts, ";") + ";"
}

func betaOf(temperature float64) string {
	return fmt.Sprintf("b = beta(%s)", layout.FormatTemperature(temperature))
}

// SOS renders the sum-over-states job for one temperature and basis size.
func SOS(t Target, temperature float64, basisSize int) string {
	return join(
		betaOf(temperature),
		fmt.Sprintf("BS = %d", basisSize),
		t.fileStructure(),
		"FS.generate_model_hashes()",
		"jw.prepare_julia()",
		"pibronic.julia_wrapper.sos_of_coupled_model(FS, BS, b)",
	)
}

// Trotter renders the trotter job for one temperature, bead count and basis
// size.
func Trotter(t Target, temperature float64, beads, basisSize int) string {
	return join(
		betaOf(temperature),
		fmt.Sprintf("P = %d", beads),
		fmt.Sprintf("BS = %d", basisSize),
		t.fileStructure(),
		"FS.generate_model_hashes()",
		"jw.prepare_julia()",
		"pibronic.julia_wrapper.trotter_of_coupled_model(FS, P, BS, b)",
	)
}

// Analytic renders the analytic sampling-model job for one temperature.
func Analytic(t Target, temperature float64) string {
	return join(
		betaOf(temperature),
		t.fileStructure(),
		"FS.generate_model_hashes()",
		"jw.prepare_julia()",
		"pibronic.julia_wrapper.analytic_of_sampling_model(FS, b)",
	)
}

// Iterative renders the iterative sampling-model job.
func Iterative(t Target, iterations int) string {
	return join(
		fmt.Sprintf("n_iter = %d", iterations),
		t.fileStructure(),
		"jw.prepare_julia()",
		"pibronic.julia_wrapper.iterate_method(FS, n_iterations=n_iter)",
	)
}

// Job names. Every name carries the dataset id as D{n} so scheduler queues
// can be filtered per dataset.

// SOSJobName names a sum-over-states job.
func SOSJobName(datasetID int, temperature float64) string {
	return fmt.Sprintf("sos_D%d_T%s", datasetID, layout.FormatTemperature(temperature))
}

// TrotterJobName names a trotter job.
func TrotterJobName(datasetID, beads int, temperature float64) string {
	return fmt.Sprintf("trotter_D%d_P%d_T%s", datasetID, beads, layout.FormatTemperature(temperature))
}

// AnalyticJobName names an analytic job.
func AnalyticJobName(datasetID, distributionID int, temperature float64) string {
	return fmt.Sprintf("analytic_D%d_R%d_T%s", datasetID, distributionID, layout.FormatTemperature(temperature))
}

// IterativeJobName names an iterative-method job.
func IterativeJobName(datasetID int) string {
	return fmt.Sprintf("iterative_D%d", datasetID)
}

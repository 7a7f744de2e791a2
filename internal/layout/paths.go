package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mattn/go-zglob"
)

// Model file names.
const (
	CoupledModelFile   = "coupled_model.json"
	HarmonicModelFile  = "harmonic_model.json"
	SamplingModelFile  = "sampling_model.json"
	IterativeModelFile = "iterative_model.json"
)

// AnalyticResultsFile holds analytic results of a sampling model, keyed by
// temperature.
const AnalyticResultsFile = "analytic_results.json"

// FieldJobIndex is the unresolved job-index field in execution artifact
// templates.
const FieldJobIndex = "J"

// TemperatureFormat renders temperatures in file names, job names and result
// keys.
const TemperatureFormat = "%.2f"

// FormatTemperature renders T with TemperatureFormat.
func FormatTemperature(t float64) string {
	return fmt.Sprintf(TemperatureFormat, t)
}

// CoupledModel returns the dataset's coupled model path.
func (n *Namespace) CoupledModel() string {
	return filepath.Join(n.DatasetSubDir(DirParameters), CoupledModelFile)
}

// HarmonicModel returns the dataset's harmonic model path.
func (n *Namespace) HarmonicModel() string {
	return filepath.Join(n.DatasetSubDir(DirParameters), HarmonicModelFile)
}

// SamplingModel returns the distribution's sampling model path.
func (n *Namespace) SamplingModel() string {
	return filepath.Join(n.DistributionSubDir(DirParameters), SamplingModelFile)
}

// IterativeModel returns the path the iterative method writes its model to.
func (n *Namespace) IterativeModel() string {
	return filepath.Join(n.DistributionSubDir(DirParameters), IterativeModelFile)
}

// SOSParameters returns the sum-over-states record for basis size B.
func (n *Namespace) SOSParameters(basisSize int) string {
	return filepath.Join(n.DatasetSubDir(DirParameters), fmt.Sprintf("sos_B%d.json", basisSize))
}

// TrotterParameters returns the trotter record for P beads and basis size B.
func (n *Namespace) TrotterParameters(beads, basisSize int) string {
	return filepath.Join(n.DatasetSubDir(DirParameters), fmt.Sprintf("trotter_P%d_B%d.json", beads, basisSize))
}

// AnalyticResults returns the distribution's analytic results record.
func (n *Namespace) AnalyticResults() string {
	return filepath.Join(n.DistributionSubDir(DirParameters), AnalyticResultsFile)
}

// PIMCResults returns the template for PIMC sample output. The job index
// field stays unresolved; it is filled by the job or matched at read time.
func (n *Namespace) PIMCResults(beads int, temperature float64) Template {
	name := fmt.Sprintf("D%d_R%d_P%d_T%s_J{%s}_data_points.npz",
		n.datasetID, n.distributionID, beads, FormatTemperature(temperature), FieldJobIndex)
	return Template(filepath.Join(n.DistributionSubDir(DirResults), name))
}

// Jackknife returns the jackknife thermodynamics output for X samples.
func (n *Namespace) Jackknife(beads int, temperature float64, samples int) string {
	name := fmt.Sprintf("D%d_R%d_P%d_T%s_X%d_thermo",
		n.datasetID, n.distributionID, beads, FormatTemperature(temperature), samples)
	return filepath.Join(n.DistributionSubDir(DirResults), name)
}

// MatchPIMC returns every existing PIMC output file for (P, T), sorted.
// No matches is not an error.
func (n *Namespace) MatchPIMC(beads int, temperature float64) ([]string, error) {
	return n.PIMCResults(beads, temperature).Match()
}

// Template is an artifact path with unresolved fields written as {NAME}.
type Template string

var fieldPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Fields returns the names of the unresolved fields, in order.
func (t Template) Fields() []string {
	var fields []string
	for _, m := range fieldPattern.FindAllStringSubmatch(string(t), -1) {
		fields = append(fields, m[1])
	}
	return fields
}

// Fill replaces every occurrence of field with value.
func (t Template) Fill(field string, value any) Template {
	return Template(strings.ReplaceAll(string(t), "{"+field+"}", fmt.Sprint(value)))
}

// Path returns the template as a concrete path. Fails if any field is left.
func (t Template) Path() (string, error) {
	if fields := t.Fields(); len(fields) > 0 {
		return "", fmt.Errorf("template %q has unresolved fields %v", string(t), fields)
	}
	return string(t), nil
}

// Pattern turns every unresolved field into a glob wildcard.
func (t Template) Pattern() string {
	return fieldPattern.ReplaceAllString(string(t), "*")
}

// Match globs the filesystem for paths the template can resolve to.
func (t Template) Match() ([]string, error) {
	matches, err := zglob.Glob(t.Pattern())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("match %s: %w", t.Pattern(), err)
	}
	sort.Strings(matches)
	return matches, nil
}

package sweep

import (
	"fmt"
	"strings"

	"github.com/gharib85/Pibronic/internal/results"
	"github.com/gharib85/Pibronic/internal/scheduler"
)

// Kind identifies the artifact a job produces.
type Kind string

const (
	// KindSOS is the sum-over-states parameter record, keyed by temperature,
	// one file per basis size.
	KindSOS Kind = "sos"
	// KindTrotter is the Trotter parameter record, one file per bead count
	// and basis size.
	KindTrotter Kind = "trotter"
	// KindAnalytic is the analytic result of a sampling distribution.
	KindAnalytic Kind = "analytic"
	// KindIterative is the iterative sampling-model job. Not part of sweeps.
	KindIterative Kind = "iterative"
)

// ParseKind parses a sweepable kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSOS, KindTrotter, KindAnalytic:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q: must be sos, trotter or analytic", s)
	}
}

// ParseKinds parses each name in order. Empty input yields nil.
func ParseKinds(names []string) ([]Kind, error) {
	var kinds []Kind
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Selector picks the namespaces a run covers.
type Selector struct {
	Variant string
	Root    string
}

// Spec is the parameter space of one run. Points are visited outer to inner
// in the order given: kinds, basis sizes, temperatures, bead counts.
type Spec struct {
	Kinds        []Kind
	Temperatures []float64
	BasisSizes   []int
	BeadCounts   []int
	Mode         scheduler.Mode
	// DryRun evaluates every point without submitting anything.
	DryRun bool
}

// Validate checks that every requested kind has the parameters it needs.
func (s Spec) Validate() error {
	if len(s.Kinds) == 0 {
		return fmt.Errorf("sweep spec: no kinds")
	}
	if len(s.Temperatures) == 0 {
		return fmt.Errorf("sweep spec: no temperatures")
	}
	for _, t := range s.Temperatures {
		if t <= 0 {
			return fmt.Errorf("sweep spec: temperature %v is not positive", t)
		}
	}
	for _, k := range s.Kinds {
		switch k {
		case KindSOS:
			if len(s.BasisSizes) == 0 {
				return fmt.Errorf("sweep spec: %s needs basis sizes", k)
			}
		case KindTrotter:
			if len(s.BasisSizes) == 0 || len(s.BeadCounts) == 0 {
				return fmt.Errorf("sweep spec: %s needs basis sizes and bead counts", k)
			}
		case KindAnalytic:
		default:
			return fmt.Errorf("sweep spec: kind %q cannot be swept", k)
		}
	}
	return nil
}

// dedupe drops repeated kinds, basis sizes and bead counts, and temperatures
// that share a record key, keeping the first occurrence of each. Two values
// with one key would gate against the same record entry and submit the
// same job twice.
func (s Spec) dedupe() Spec {
	s.Kinds = firstOf(s.Kinds, func(k Kind) Kind { return k })
	s.Temperatures = firstOf(s.Temperatures, results.TemperatureKey)
	s.BasisSizes = firstOf(s.BasisSizes, func(b int) int { return b })
	s.BeadCounts = firstOf(s.BeadCounts, func(p int) int { return p })
	return s
}

func firstOf[T any, K comparable](values []T, key func(T) K) []T {
	seen := make(map[K]bool, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		k := key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

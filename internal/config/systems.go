package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// System is one dataset of a variant and the sampling distributions derived
// from it.
type System struct {
	Dataset       int
	Distributions []int
}

// UnknownVariantError reports a variant name missing from the systems table.
type UnknownVariantError struct {
	Variant string
	Known   []string
}

func (e *UnknownVariantError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown variant %q: no variants configured", e.Variant)
	}
	return fmt.Sprintf("unknown variant %q (known: %s)", e.Variant, strings.Join(e.Known, ", "))
}

// IsUnknownVariant checks if err is an UnknownVariantError.
func IsUnknownVariant(err error) bool {
	var target *UnknownVariantError
	return errors.As(err, &target)
}

// Systems maps variant names to their datasets. It is immutable once built;
// accessors return copies.
type Systems struct {
	table map[string][]System
}

// NewSystems copies table into an immutable Systems. A dataset declared
// without distributions gets distribution 0.
//
// A dataset belongs to exactly one variant. Sweeps of different variants run
// concurrently without locks, so a dataset shared between two of them would
// be submitted twice.
func NewSystems(table map[string][]System) (Systems, error) {
	variants := make([]string, 0, len(table))
	for variant := range table {
		variants = append(variants, variant)
	}
	sort.Strings(variants)

	owner := make(map[int]string)
	out := make(map[string][]System, len(table))
	for _, variant := range variants {
		systems := table[variant]
		if variant == "" {
			return Systems{}, fmt.Errorf("systems: empty variant name")
		}
		seen := make(map[int]bool, len(systems))
		copied := make([]System, 0, len(systems))
		for _, s := range systems {
			if s.Dataset < 0 {
				return Systems{}, fmt.Errorf("systems: variant %q: negative dataset id %d", variant, s.Dataset)
			}
			if seen[s.Dataset] {
				return Systems{}, fmt.Errorf("systems: variant %q: dataset %d declared twice", variant, s.Dataset)
			}
			seen[s.Dataset] = true
			if other, ok := owner[s.Dataset]; ok {
				return Systems{}, fmt.Errorf("systems: dataset %d declared by both %q and %q", s.Dataset, other, variant)
			}
			owner[s.Dataset] = variant

			dists := slices.Clone(s.Distributions)
			if len(dists) == 0 {
				dists = []int{0}
			}
			for _, r := range dists {
				if r < 0 {
					return Systems{}, fmt.Errorf("systems: variant %q dataset %d: negative distribution id %d", variant, s.Dataset, r)
				}
			}
			copied = append(copied, System{Dataset: s.Dataset, Distributions: dists})
		}
		out[variant] = copied
	}
	return Systems{table: out}, nil
}

// Variants returns the configured variant names, sorted.
func (s Systems) Variants() []string {
	names := make([]string, 0, len(s.table))
	for name := range s.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether variant is configured.
func (s Systems) Has(variant string) bool {
	_, ok := s.table[variant]
	return ok
}

// Datasets returns the dataset ids of variant in declared order.
func (s Systems) Datasets(variant string) ([]int, error) {
	systems, ok := s.table[variant]
	if !ok {
		return nil, &UnknownVariantError{Variant: variant, Known: s.Variants()}
	}
	ids := make([]int, len(systems))
	for i, sys := range systems {
		ids[i] = sys.Dataset
	}
	return ids, nil
}

// Distributions returns the distribution ids declared for dataset under
// variant.
func (s Systems) Distributions(variant string, dataset int) ([]int, error) {
	systems, ok := s.table[variant]
	if !ok {
		return nil, &UnknownVariantError{Variant: variant, Known: s.Variants()}
	}
	for _, sys := range systems {
		if sys.Dataset == dataset {
			return slices.Clone(sys.Distributions), nil
		}
	}
	return nil, fmt.Errorf("variant %q has no dataset %d", variant, dataset)
}

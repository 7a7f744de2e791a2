package sweep

import (
	"fmt"

	"github.com/gharib85/Pibronic/internal/gate"
)

// Outcome is what happened at one point.
type Outcome int

const (
	Skipped Outcome = iota
	Submitted
	Failed
	// Pending marks a point a dry run would have submitted.
	Pending
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	case Pending:
		return "pending"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Point is one visited parameter combination.
type Point struct {
	Variant        string
	Kind           Kind
	DatasetID      int
	DistributionID int
	Temperature    float64
	BasisSize      int
	BeadCount      int

	// Path is the result record the gate checked; Key the entry within it.
	Path string
	Key  string

	Decision gate.Decision
	Outcome  Outcome
	JobName  string
	JobID    string
	Err      error
}

// Summary tallies a run. Points are in visit order.
type Summary struct {
	Variant   string
	Submitted int
	Skipped   int
	Failed    int
	Pending   int
	Points    []Point
}

func (s *Summary) add(p Point) {
	switch p.Outcome {
	case Submitted:
		s.Submitted++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	case Pending:
		s.Pending++
	}
	s.Points = append(s.Points, p)
}

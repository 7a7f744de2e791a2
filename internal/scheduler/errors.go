package scheduler

import (
	"errors"
	"fmt"
)

// SubmissionError means the scheduler did not accept the job.
type SubmissionError struct {
	JobName string
	Command string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.JobName, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ResourceExhaustedError means a Sync job ran out of a reserved resource.
// Both streams are kept for diagnosis.
type ResourceExhaustedError struct {
	JobName string
	Marker  string
	Stdout  []byte
	Stderr  []byte
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("job %s exhausted resources (%q)\nstderr:\n%s\nstdout:\n%s",
		e.JobName, e.Marker, e.Stderr, e.Stdout)
}

// IsSubmissionError reports whether err is a SubmissionError.
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

// IsResourceExhausted reports whether err is a ResourceExhaustedError.
func IsResourceExhausted(err error) bool {
	var re *ResourceExhaustedError
	return errors.As(err, &re)
}

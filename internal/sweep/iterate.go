package sweep

import (
	"context"
	"fmt"
	"os"

	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/remote"
	"github.com/gharib85/Pibronic/internal/scheduler"
)

// DefaultIterations is the iteration count of the iterative job.
const DefaultIterations = 50

// Iterate runs the iterative sampling-model job for datasetID and blocks
// until its model file is readable.
//
// The job runs Sync and interactive on distribution 0. Returning from the
// scheduler does not guarantee the file is visible on shared storage, so
// Iterate then waits on the completion barrier.
func (d *Driver) Iterate(ctx context.Context, root string, datasetID, iterations int) (*scheduler.Handle, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	ns, err := layout.Resolve(root, datasetID, 0)
	if err != nil {
		return nil, err
	}

	req := scheduler.Request{
		JobName:    remote.IterativeJobName(datasetID),
		Resources:  scheduler.Resources{Memory: d.memory, Interactive: true},
		Invocation: remote.Iterative(remote.TargetOf(ns), iterations),
		Mode:       scheduler.Sync,
	}
	p := Point{
		Kind:      KindIterative,
		DatasetID: datasetID,
		Path:      ns.IterativeModel(),
		Key:       fmt.Sprintf("%d", iterations),
	}

	// A model left by an earlier run must not satisfy the barrier.
	prior, err := os.Stat(ns.IterativeModel())
	if err != nil {
		prior = nil
	}

	d.logger.InfoContext(ctx, "generating iterative sampling model",
		"dataset", datasetID, "iterations", iterations)
	h, err := d.submitter.Submit(ctx, req)
	d.record(ctx, p, req, h, err)
	if err != nil {
		return nil, err
	}
	if h.ExitCode != 0 {
		d.logger.WarnContext(ctx, "iterative job exited with non-zero status",
			"dataset", datasetID, "exit_code", h.ExitCode)
	}

	if err := d.gate.AwaitFile(ctx, ns.IterativeModel(), prior); err != nil {
		return h, fmt.Errorf("iterative model for dataset %d: %w", datasetID, err)
	}
	d.logger.InfoContext(ctx, "iterative sampling model ready", "path", ns.IterativeModel())
	return h, nil
}

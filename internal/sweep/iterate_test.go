package sweep_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharib85/Pibronic/internal/gate"
	"github.com/gharib85/Pibronic/internal/scheduler"
	"github.com/gharib85/Pibronic/internal/sweep"
	"github.com/gharib85/Pibronic/internal/testutil"
)

func TestIterateWaitsForModel(t *testing.T) {
	h := newHarness(t, displaced(3))
	ns, _ := h.dataset(t, 3)

	h.runner.OnRun(func(string) {
		// Simulate shared storage catching up after the job returns.
		go func() {
			time.Sleep(30 * time.Millisecond)
			tmp := ns.IterativeModel() + ".tmp"
			assert.NoError(t, os.WriteFile(tmp, []byte(testutil.SamplingModel), 0o644))
			assert.NoError(t, os.Rename(tmp, ns.IterativeModel()))
		}()
	})

	handle, err := h.driver.Iterate(context.Background(), h.root, 3, 0)
	require.NoError(t, err)

	assert.Equal(t, scheduler.Sync, handle.Mode)
	assert.Equal(t, "iterative_D3", handle.JobName)
	assert.FileExists(t, ns.IterativeModel())

	ran := h.runner.Ran()
	require.Len(t, ran, 1)
	assert.Contains(t, ran[0], "--pty")
	assert.Contains(t, ran[0], "--mem=20GB")
	assert.Contains(t, ran[0], "n_iter = 50")
}

func TestIterateTimesOut(t *testing.T) {
	h := newHarness(t, displaced(3))
	h.dataset(t, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.driver.Iterate(ctx, h.root, 3, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIterateBarrierTimeout(t *testing.T) {
	h := newHarness(t, displaced(3))
	h.dataset(t, 3)

	g := gate.New(discardLogger(), gate.Barrier{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Timeout:         40 * time.Millisecond,
	})
	d := sweep.NewDriver(h.systems, scheduler.NewDispatcher(h.runner, scheduler.DefaultConfig()), g,
		sweep.WithLogger(discardLogger()))

	_, err := d.Iterate(context.Background(), h.root, 3, 5)
	require.Error(t, err)
	assert.True(t, gate.IsCompletionTimeout(err))
	assert.Contains(t, err.Error(), filepath.Join("distribution_0", "parameters", "iterative_model.json"))
}

func TestIterateIgnoresLeftoverModel(t *testing.T) {
	h := newHarness(t, displaced(3))
	ns, _ := h.dataset(t, 3)
	testutil.WriteFile(t, ns.IterativeModel(), testutil.SamplingModel)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(ns.IterativeModel(), old, old))

	g := gate.New(discardLogger(), gate.Barrier{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Timeout:         40 * time.Millisecond,
	})
	d := sweep.NewDriver(h.systems, scheduler.NewDispatcher(h.runner, scheduler.DefaultConfig()), g,
		sweep.WithLogger(discardLogger()))

	_, err := d.Iterate(context.Background(), h.root, 3, 5)
	require.Error(t, err)

	var cte *gate.CompletionTimeoutError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, gate.Stale, cte.Last)
}

func TestIterateSubmissionFailure(t *testing.T) {
	h := newHarness(t, displaced(3))
	h.dataset(t, 3)
	h.runner.SetOutput("", "Out Of Memory", 137)

	_, err := h.driver.Iterate(context.Background(), h.root, 3, 5)
	require.Error(t, err)
	assert.True(t, scheduler.IsResourceExhausted(err))
}

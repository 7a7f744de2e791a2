package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharib85/Pibronic/internal/testutil"
)

func TestIterateWritesModel(t *testing.T) {
	env := newTestEnv(t)
	ns, _ := env.dataset(t, 3)
	env.runner.OnRun(func(string) {
		assert.NoError(t, os.WriteFile(ns.IterativeModel(), []byte(testutil.SamplingModel), 0o644))
	})

	out, err := env.run(t, "--format", "json", "iterate", "-c", env.config, "--variant", "displaced", "--iterations", "7")
	require.NoError(t, err)

	var resp struct {
		Data IterateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Results, 1)
	res := resp.Data.Results[0]
	assert.Equal(t, 3, res.Dataset)
	assert.Equal(t, "iterative_D3", res.Job)
	assert.Equal(t, ns.IterativeModel(), res.Model)
	assert.Empty(t, res.Error)

	ran := env.runner.Ran()
	require.Len(t, ran, 1)
	assert.Contains(t, ran[0], "n_iter = 7")
	assert.Contains(t, ran[0], "--pty")
}

func TestIterateBarrierTimeout(t *testing.T) {
	env := newTestEnvWithTimeout(t, "30ms")
	env.dataset(t, 3)

	out, err := env.run(t, "iterate", "-c", env.config, "--dataset", "3")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "D3\tfailed")
	assert.Contains(t, out, "timed out")
}

func TestIterateRequiresTarget(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "iterate", "-c", env.config)
	require.Error(t, err)
}

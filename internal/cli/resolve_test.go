package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharib85/Pibronic/internal/fingerprint"
	"github.com/gharib85/Pibronic/internal/layout"
	"github.com/gharib85/Pibronic/internal/testutil"
)

func TestResolveCreatesNamespace(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "resolve", "--root", env.root, "3", "1")
	require.NoError(t, err)

	var resp struct {
		Data ResolveReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	r := resp.Data
	assert.Equal(t, 3, r.Dataset)
	assert.Equal(t, 1, r.Distribution)
	assert.Equal(t, filepath.Join(env.root, "dataset_3"), r.DatasetDir)
	assert.Equal(t, filepath.Join(env.root, "dataset_3", "distribution_1"), r.DistributionDir)

	for _, sub := range layout.SubDirs {
		assert.DirExists(t, filepath.Join(r.DatasetDir, sub))
		assert.DirExists(t, filepath.Join(r.DistributionDir, sub))
	}
	require.Len(t, r.Models, 4)
	for _, m := range r.Models {
		assert.False(t, m.Exists, m.Name)
	}
}

func TestResolveReportsFingerprints(t *testing.T) {
	env := newTestEnv(t)
	ns, coupled := env.dataset(t, 3)
	testutil.WriteFile(t, ns.IterativeModel(), `{"broken`)

	out, err := env.run(t, "--format", "json", "resolve", "-c", env.config, "3")
	require.NoError(t, err)

	var resp struct {
		Data ResolveReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	models := map[string]ModelReport{}
	for _, m := range resp.Data.Models {
		models[m.Name] = m
	}
	assert.Equal(t, coupled, models["coupled"].Fingerprint)
	assert.Equal(t, fingerprint.MustModelHash(ns.SamplingModel()), models["sampling"].Fingerprint)
	assert.False(t, models["harmonic"].Exists)
	assert.True(t, models["iterative"].Exists)
	assert.NotEmpty(t, models["iterative"].Error)
}

func TestResolveListsPIMCResults(t *testing.T) {
	env := newTestEnv(t)
	ns, _ := env.dataset(t, 3)
	for _, j := range []string{"2", "1"} {
		path, err := ns.PIMCResults(50, 300).Fill(layout.FieldJobIndex, j).Path()
		require.NoError(t, err)
		testutil.WriteFile(t, path, "npz")
	}

	out, err := env.run(t, "resolve", "--root", env.root, "3", "-P", "50", "-T", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "D3_R0_P50_T300.00_J1_data_points.npz")
	assert.Contains(t, out, "D3_R0_P50_T300.00_J2_data_points.npz")
}

func TestResolveBadArgs(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "resolve", "--root", env.root, "three")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run(t, "resolve", "--root", filepath.Join(env.root, "missing"), "3")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

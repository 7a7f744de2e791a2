package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharib85/Pibronic/internal/results"
)

func decodeSweep(t *testing.T, out string) SweepReport {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   SweepReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestSweepSubmitsMissingPoints(t *testing.T) {
	env := newTestEnv(t)
	env.dataset(t, 3)

	out, err := env.run(t, "sweep", "-c", env.config)
	require.NoError(t, err)

	assert.Contains(t, out, "submitted 1, skipped 0, failed 0")
	assert.Contains(t, out, "sos_D3_T300.00")

	started := env.runner.Started()
	require.Len(t, started, 1)
	assert.Contains(t, started[0], "--job-name=sos_D3_T300.00")
}

func TestSweepJSON(t *testing.T) {
	env := newTestEnv(t)
	ns, coupled := env.dataset(t, 3)
	require.NoError(t, results.Upsert(ns.SOSParameters(80), coupled, "300.00", 0.5))

	out, err := env.run(t, "--format", "json", "sweep", "-c", env.config, "-T", "300,250")
	require.NoError(t, err)

	report := decodeSweep(t, out)
	assert.Equal(t, 1, report.Submitted)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Variants, 1)
	v := report.Variants[0]
	assert.Equal(t, "displaced", v.Variant)
	require.Len(t, v.Points, 2)
	assert.Equal(t, "skipped", v.Points[0].Outcome)
	assert.Equal(t, "present", v.Points[0].Decision)
	assert.Equal(t, "submitted", v.Points[1].Outcome)
	assert.Equal(t, "250.00", v.Points[1].Key)
}

func TestSweepFlagOverrides(t *testing.T) {
	env := newTestEnv(t)
	ns, coupled := env.dataset(t, 3)
	env.runner.OnRun(func(command string) {
		for _, beads := range []int{10, 20} {
			if strings.Contains(command, fmt.Sprintf("_P%d_", beads)) {
				assert.NoError(t, results.Upsert(ns.TrotterParameters(beads, 60), coupled, "300.00", 1.0))
			}
		}
	})

	_, err := env.run(t, "sweep", "-c", env.config, "--kind", "trotter", "-B", "60", "-P", "10,20",
		"--mode", "sync", "--memory", "8GB")
	require.NoError(t, err)

	assert.Empty(t, env.runner.Started())
	ran := env.runner.Ran()
	require.Len(t, ran, 2)
	assert.Contains(t, ran[0], "--job-name=trotter_D3_P10_T300.00")
	assert.Contains(t, ran[0], "--mem=8GB")
	assert.Contains(t, ran[1], "--job-name=trotter_D3_P20_T300.00")
}

func TestSweepFailedPointExitCode(t *testing.T) {
	env := newTestEnv(t)
	env.dataset(t, 3)
	env.runner.FailStartOn("sos_D3")

	out, err := env.run(t, "sweep", "-c", env.config)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "scheduler rejected job")
}

func TestSweepUnknownVariant(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "sweep", "-c", env.config, "--variant", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E004")
}

func TestSweepInvalidRoot(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.RemoveAll(env.root))

	out, err := env.run(t, "--format", "json", "sweep", "-c", env.config)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidRoot, resp.Error.Code)
}

func TestSweepBadKind(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "sweep", "-c", env.config, "--kind", "pimc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckDoesNotSubmit(t *testing.T) {
	env := newTestEnv(t)
	env.dataset(t, 3)

	out, err := env.run(t, "--format", "json", "check", "-c", env.config)
	require.NoError(t, err)

	report := decodeSweep(t, out)
	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 0, report.Submitted)
	assert.Equal(t, "missing", report.Variants[0].Points[0].Decision)
	assert.Empty(t, env.runner.Started())
	assert.NoFileExists(t, env.ledger)
}

func TestSweepThenHistory(t *testing.T) {
	env := newTestEnv(t)
	env.dataset(t, 3)

	_, err := env.run(t, "sweep", "-c", env.config)
	require.NoError(t, err)

	out, err := env.run(t, "--format", "json", "history", "-c", env.config)
	require.NoError(t, err)

	var resp struct {
		Data HistoryReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Submissions, 1)
	s := resp.Data.Submissions[0]
	assert.Equal(t, "sos_D3_T300.00", s.Job)
	assert.Equal(t, "accepted", s.Outcome)
	assert.Equal(t, "async", s.Mode)
	assert.Equal(t, 3, s.Dataset)

	out, err = env.run(t, "history", "--ledger", env.ledger, "--outcome", "rejected")
	require.NoError(t, err)
	assert.Contains(t, out, "no submissions recorded")

	out, err = env.run(t, "history", "--ledger", env.ledger)
	require.NoError(t, err)
	assert.Contains(t, out, "SUBMITTED")
	assert.Contains(t, out, "D3_R0")
}

func TestHistoryWithoutLedger(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

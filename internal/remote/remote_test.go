package remote

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharib85/Pibronic/internal/layout"
)

var target = Target{Root: "/data/pibronic", DatasetID: 3, DistributionID: 1}

// To regenerate golden files, run:
//
//	go test ./internal/remote -update
func TestInvocationGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		got  string
	}{
		{"sos", SOS(target, 300, 80)},
		{"trotter", Trotter(target, 300, 50, 80)},
		{"analytic", Analytic(target, 250.5)},
		{"iterative", Iterative(target, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(tt.got))
		})
	}
}

func TestInvocationShape(t *testing.T) {
	got := SOS(target, 300, 80)

	assert.True(t, strings.HasPrefix(got, "import pibronic;"))
	assert.True(t, strings.HasSuffix(got, ";"))
	assert.NotContains(t, got, "'", "single quotes would break the shell wrapper")
	assert.Contains(t, got, `FS = fs.FileStructure("/data/pibronic", 3, 1)`)
	assert.Contains(t, got, "b = beta(300.00)")
}

func TestTargetOf(t *testing.T) {
	ns, err := layout.Resolve(t.TempDir(), 7, 2)
	require.NoError(t, err)

	tg := TargetOf(ns)
	assert.Equal(t, ns.Root(), tg.Root)
	assert.Equal(t, 7, tg.DatasetID)
	assert.Equal(t, 2, tg.DistributionID)
}

func TestJobNames(t *testing.T) {
	assert.Equal(t, "sos_D3_T300.00", SOSJobName(3, 300))
	assert.Equal(t, "trotter_D3_P50_T300.00", TrotterJobName(3, 50, 300))
	assert.Equal(t, "analytic_D3_R1_T250.50", AnalyticJobName(3, 1, 250.5))
	assert.Equal(t, "iterative_D11", IterativeJobName(11))
}

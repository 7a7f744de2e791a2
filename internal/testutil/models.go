package testutil

import (
	"os"
	"testing"

	"github.com/gharib85/Pibronic/internal/fingerprint"
	"github.com/gharib85/Pibronic/internal/layout"
)

// CoupledModel is a minimal coupled model document.
const CoupledModel = `{"number of modes": 2, "number of surfaces": 2, "energies": [[0.0, 0.1], [0.1, 0.2]]}`

// SamplingModel is a minimal sampling model document.
const SamplingModel = `{"number of modes": 2, "number of surfaces": 2, "energies": [0.0, 0.2]}`

// WriteModels writes the coupled and sampling models for ns and returns their
// fingerprints.
func WriteModels(t *testing.T, ns *layout.Namespace) (coupled, sampling string) {
	t.Helper()
	WriteFile(t, ns.CoupledModel(), CoupledModel)
	WriteFile(t, ns.SamplingModel(), SamplingModel)
	return fingerprint.MustModelHash(ns.CoupledModel()), fingerprint.MustModelHash(ns.SamplingModel())
}

// WriteFile writes content to path or fails the test.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

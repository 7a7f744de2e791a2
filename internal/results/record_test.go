package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sos_B80.json")
}

func TestLoadMissing(t *testing.T) {
	rec, err := Load(recordPath(t))
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsValidationFailure(err))
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"truncated", `{"hash": "abc", "300.00": `},
		{"array", `[1, 2]`},
		{"null", `null`},
		{"hash not string", `{"hash": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := recordPath(t)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			rec, err := Load(path)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, IsValidationFailure(err), "got %v", err)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLoadFlatFormat(t *testing.T) {
	path := recordPath(t)
	content := `{"hash": "abc123", "300.00": 0.8123, "250.00": [1, 2]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", rec.Hash)
	assert.Equal(t, []string{"250.00", "300.00"}, rec.Keys())
	assert.JSONEq(t, `0.8123`, string(rec.Entries["300.00"]))
	assert.False(t, rec.Has(HashKey), "hash is not an entry")
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := recordPath(t)

	rec := NewRecord("feedface")
	rec.Entries["300.00"] = json.RawMessage(`0.8123`)
	rec.Entries["250.00"] = json.RawMessage(`{"E":-1.5,"Cv":[0.1,0.2]}`)
	require.NoError(t, Write(path, rec))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, loaded.Hash)
	assert.Equal(t, rec.Entries, loaded.Entries)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestValidate(t *testing.T) {
	rec := NewRecord("abc")

	assert.True(t, Validate(rec, "abc"))
	assert.False(t, Validate(rec, "abd"), "one character difference must invalidate")
	assert.False(t, Validate(rec, ""))
	assert.False(t, Validate(nil, "abc"))
	assert.False(t, Validate(NewRecord(""), ""))
}

func TestUpsertAppendsToFreshRecord(t *testing.T) {
	path := recordPath(t)

	require.NoError(t, Upsert(path, "h1", TemperatureKey(300), 1.5))
	require.NoError(t, Upsert(path, "h1", TemperatureKey(250), 2.5))

	rec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "h1", rec.Hash)
	assert.Equal(t, []string{"250.00", "300.00"}, rec.Keys())
}

func TestUpsertDiscardsStaleRecord(t *testing.T) {
	path := recordPath(t)

	require.NoError(t, Upsert(path, "old", "300.00", 1.5))
	require.NoError(t, Upsert(path, "old", "250.00", 2.5))
	require.NoError(t, Upsert(path, "new", "200.00", 3.5))

	rec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Hash)
	assert.Equal(t, []string{"200.00"}, rec.Keys(), "stale entries must not be merged forward")
}

func TestUpsertReplacesCorruptRecord(t *testing.T) {
	path := recordPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	require.NoError(t, Upsert(path, "h1", "300.00", 1.0))

	rec, err := Load(path)
	require.NoError(t, err)
	assert.True(t, rec.Has("300.00"))
}

func TestUpsertRejectsHashKey(t *testing.T) {
	err := Upsert(recordPath(t), "h1", HashKey, 1.0)
	require.Error(t, err)
}

func TestTemperatureKey(t *testing.T) {
	assert.Equal(t, "300.00", TemperatureKey(300.0))
	assert.Equal(t, "300.00", TemperatureKey(300.001))
}

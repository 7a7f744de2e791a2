package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testEntry(id string, dataset int) Entry {
	return Entry{
		ID:             id,
		JobName:        fmt.Sprintf("sos_D%d_T300.00", dataset),
		Kind:           "sos",
		Variant:        "displaced",
		DatasetID:      dataset,
		DistributionID: 0,
		ParameterKey:   "300.00",
		ArtifactPath:   "/data/dataset_3/parameters/sos_B80.json",
		Mode:           "async",
		Command:        "srun --job-name=sos",
		Outcome:        OutcomeAccepted,
		SubmittedAt:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l1.Record(context.Background(), testEntry("a", 3)))
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	entries, err := l2.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenAppliesPragmas(t *testing.T) {
	l := createTestLedger(t)

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, l.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	l := createTestLedger(t)

	require.NoError(t, l.Record(ctx, testEntry("a", 3)))
	require.NoError(t, l.Record(ctx, testEntry("b", 4)))

	entries, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := entries[0]
	want := testEntry("a", 3)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.JobName, got.JobName)
	assert.Equal(t, want.ArtifactPath, got.ArtifactPath)
	assert.True(t, want.SubmittedAt.Equal(got.SubmittedAt))
	assert.Less(t, entries[0].Seq, entries[1].Seq)
}

func TestRecordDuplicateIDIgnored(t *testing.T) {
	ctx := context.Background()
	l := createTestLedger(t)

	require.NoError(t, l.Record(ctx, testEntry("a", 3)))
	require.NoError(t, l.Record(ctx, testEntry("a", 4)))

	entries, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].DatasetID)
}

func TestRecordEmptyID(t *testing.T) {
	l := createTestLedger(t)
	require.Error(t, l.Record(context.Background(), Entry{}))
}

func TestListFilter(t *testing.T) {
	ctx := context.Background()
	l := createTestLedger(t)

	rejected := testEntry("c", 3)
	rejected.Outcome = OutcomeRejected
	require.NoError(t, l.Record(ctx, testEntry("a", 3)))
	require.NoError(t, l.Record(ctx, testEntry("b", 4)))
	require.NoError(t, l.Record(ctx, rejected))

	d3 := 3
	entries, err := l.List(ctx, Filter{DatasetID: &d3})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = l.List(ctx, Filter{Outcome: OutcomeRejected})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].ID)

	entries, err = l.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordConcurrent(t *testing.T) {
	ctx := context.Background()
	l := createTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Record(ctx, testEntry(fmt.Sprintf("id-%d", i), i)))
		}(i)
	}
	wg.Wait()

	entries, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

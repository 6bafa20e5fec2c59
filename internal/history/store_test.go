package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/runner"
)

func newTestStore(t *testing.T, keep int) *Store {
	t.Helper()
	store, err := NewStore(common.HistoryConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "history"),
		Keep:    keep,
	}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func summaryAt(runID, environment string, startedAt time.Time) *runner.RunSummary {
	return &runner.RunSummary{
		RunID:       runID,
		Environment: environment,
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(time.Minute),
		Total:       5,
		Passed:      5,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t, 0)

	saved := summaryAt("run_1", "qa", time.Now())
	require.NoError(t, store.SaveRun(saved))

	got, err := store.GetRun("run_1")
	require.NoError(t, err)
	assert.Equal(t, "qa", got.Environment)
	assert.Equal(t, 5, got.Passed)
}

func TestSaveRun_RequiresID(t *testing.T) {
	store := newTestStore(t, 0)
	err := store.SaveRun(&runner.RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run ID is required")
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.GetRun("run_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t, 0)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := summaryAt(fmt.Sprintf("run_%d", i), "qa", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.SaveRun(s))
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run_2", runs[0].RunID)
	assert.Equal(t, "run_0", runs[2].RunID)

	limited, err := store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListByEnvironment(t *testing.T) {
	store := newTestStore(t, 0)

	now := time.Now()
	require.NoError(t, store.SaveRun(summaryAt("run_qa", "qa", now)))
	require.NoError(t, store.SaveRun(summaryAt("run_staging", "staging", now)))

	runs, err := store.ListByEnvironment("staging", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run_staging", runs[0].RunID)
}

func TestPrune_KeepsNewest(t *testing.T) {
	store := newTestStore(t, 2)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s := summaryAt(fmt.Sprintf("run_%d", i), "qa", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.SaveRun(s))
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_3", runs[0].RunID)
	assert.Equal(t, "run_2", runs[1].RunID)

	_, err = store.GetRun("run_0")
	assert.Error(t, err)
}

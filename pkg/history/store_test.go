package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/pixelrunner/pkg/imagediff"
	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func summaryWith(runID string, start time.Time, results ...runner.Result) *runner.Summary {
	s := &runner.Summary{
		RunID:     runID,
		StartTime: start,
		Duration:  3 * time.Second,
		Total:     len(results),
		Results:   results,
	}
	s.ComputeCounts()
	return s
}

func TestOpen_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	for _, path := range []string{"", "   ", "\t"} {
		store, err := Open(ctx, path)
		assert.Nil(t, store)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty database path")
	}
}

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "state", "history.db")

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
	assert.NoError(t, store.Close())

	// Reopening an existing database must not re-run the migration
	store, err = Open(ctx, dbPath)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestRecordRunAndLastStatuses(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	summary := summaryWith("run-1", time.Now(),
		runner.Result{
			Name:       "home",
			Status:     runner.StatusPassed,
			Comparison: &imagediff.Result{PixelDiff: 0, IsMatch: true},
			Duration:   time.Second,
		},
		runner.Result{
			Name:       "settings",
			Status:     runner.StatusFailed,
			Comparison: &imagediff.Result{PixelDiff: 42},
			Message:    "42 pixels differ from reference",
			Duration:   time.Second,
		},
		runner.Result{
			Name:     "checkout",
			Status:   runner.StatusError,
			Error:    "failed to capture screenshot",
			Duration: time.Second,
		},
	)

	require.NoError(t, store.RecordRun(ctx, summary))

	statuses, err := store.LastStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 3)
	assert.Equal(t, runner.StatusPassed, statuses["home"])
	assert.Equal(t, runner.StatusFailed, statuses["settings"])
	assert.Equal(t, runner.StatusError, statuses["checkout"])
}

func TestLastStatuses_NewestRunWins(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now()

	require.NoError(t, store.RecordRun(ctx, summaryWith("run-1", base,
		runner.Result{Name: "home", Status: runner.StatusFailed, Duration: time.Second},
	)))
	require.NoError(t, store.RecordRun(ctx, summaryWith("run-2", base.Add(time.Minute),
		runner.Result{Name: "home", Status: runner.StatusPassed, Duration: time.Second},
	)))

	statuses, err := store.LastStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.StatusPassed, statuses["home"])
}

func TestRecordRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	summary := summaryWith("run-dup", time.Now(),
		runner.Result{Name: "home", Status: runner.StatusPassed, Duration: time.Second},
	)
	require.NoError(t, store.RecordRun(ctx, summary))
	assert.Error(t, store.RecordRun(ctx, summary))
}

func TestRecordRun_NoRunID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.RecordRun(ctx, &runner.Summary{})
	assert.Error(t, err)
}

func TestDelta(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now()

	require.NoError(t, store.RecordRun(ctx, summaryWith("run-1", base,
		runner.Result{Name: "home", Status: runner.StatusPassed, Duration: time.Second},
		runner.Result{Name: "settings", Status: runner.StatusFailed, Duration: time.Second},
		runner.Result{Name: "checkout", Status: runner.StatusPassed, Duration: time.Second},
	)))

	// home regressed and settings was fixed; checkout errored and profile
	// has no history, so neither shows up in the delta
	current := summaryWith("run-2", base.Add(time.Minute),
		runner.Result{Name: "home", Status: runner.StatusFailed, Duration: time.Second},
		runner.Result{Name: "settings", Status: runner.StatusPassed, Duration: time.Second},
		runner.Result{Name: "checkout", Status: runner.StatusError, Duration: time.Second},
		runner.Result{Name: "profile", Status: runner.StatusFailed, Duration: time.Second},
	)

	delta, err := store.Delta(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, delta.Regressed)
	assert.Equal(t, []string{"settings"}, delta.Fixed)
}

func TestDelta_IgnoresOwnRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now()

	require.NoError(t, store.RecordRun(ctx, summaryWith("run-1", base,
		runner.Result{Name: "home", Status: runner.StatusPassed, Duration: time.Second},
	)))

	current := summaryWith("run-2", base.Add(time.Minute),
		runner.Result{Name: "home", Status: runner.StatusFailed, Duration: time.Second},
	)
	require.NoError(t, store.RecordRun(ctx, current))

	// Even though run-2 is recorded, the delta compares against run-1
	delta, err := store.Delta(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, delta.Regressed)
}

func TestDelta_EmptyHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	current := summaryWith("run-1", time.Now(),
		runner.Result{Name: "home", Status: runner.StatusFailed, Duration: time.Second},
	)

	delta, err := store.Delta(ctx, current)
	require.NoError(t, err)
	assert.Empty(t, delta.Regressed)
	assert.Empty(t, delta.Fixed)
}

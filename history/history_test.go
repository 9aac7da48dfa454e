package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/go-trainer/training"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecordAndQueryEpochs(t *testing.T) {
	store := openTestStore(t)

	when := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	for epoch := 1; epoch <= 2; epoch++ {
		err := store.RecordEpoch(training.EpochResult{
			RunID:      "run-1",
			Name:       "mnist",
			Epoch:      epoch,
			Train:      map[string]float64{"loss": 1.0 / float64(epoch), "acc": 0.5 * float64(epoch)},
			Test:       map[string]float64{"loss": 2.0 / float64(epoch), "acc": 0.4 * float64(epoch)},
			FinishedAt: when.Add(time.Duration(epoch) * time.Minute),
		})
		require.NoError(t, err)
	}

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "mnist", runs[0].Name)

	metrics, err := store.Epochs("run-1")
	require.NoError(t, err)
	require.Len(t, metrics, 4) // 2 epochs x 2 metrics, ordered by epoch then metric

	assert.Equal(t, 1, metrics[0].Epoch)
	assert.Equal(t, "acc", metrics[0].Metric)
	assert.Equal(t, "loss", metrics[1].Metric)
	assert.InDelta(t, 1.0, metrics[1].TrainAvg, 1e-12)
	assert.InDelta(t, 2.0, metrics[1].TestAvg, 1e-12)

	assert.Equal(t, 2, metrics[2].Epoch)
	assert.InDelta(t, 0.5, metrics[3].TrainAvg, 1e-12)
}

func TestRecordEpochReplacesOnRerun(t *testing.T) {
	store := openTestStore(t)

	result := training.EpochResult{
		RunID:      "run-1",
		Name:       "mnist",
		Epoch:      1,
		Train:      map[string]float64{"loss": 5.0},
		Test:       map[string]float64{"loss": 6.0},
		FinishedAt: time.Now(),
	}
	require.NoError(t, store.RecordEpoch(result))

	// Re-running the epoch (e.g. after a resume at an earlier checkpoint)
	// replaces the row instead of duplicating it
	result.Train["loss"] = 4.0
	require.NoError(t, store.RecordEpoch(result))

	metrics, err := store.Epochs("run-1")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, 4.0, metrics[0].TrainAvg, 1e-12)
}

func TestSeparateRuns(t *testing.T) {
	store := openTestStore(t)

	for _, runID := range []string{"run-a", "run-b"} {
		err := store.RecordEpoch(training.EpochResult{
			RunID:      runID,
			Name:       "mnist",
			Epoch:      1,
			Train:      map[string]float64{"loss": 1.0},
			Test:       map[string]float64{"loss": 1.0},
			FinishedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	runs, err := store.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	metrics, err := store.Epochs("run-a")
	require.NoError(t, err)
	assert.Len(t, metrics, 1)
}

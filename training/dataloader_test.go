package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRows(n, dim int, base float64) ([][]float64, []float64) {
	features := make([][]float64, n)
	labels := make([]float64, n)
	for i := range features {
		row := make([]float64, dim)
		for j := range row {
			row[j] = base + float64(i)
		}
		features[i] = row
		labels[i] = base + float64(i)
	}
	return features, labels
}

func TestNewSliceLoaderValidation(t *testing.T) {
	trainF, trainL := makeRows(4, 2, 0)
	testF, testL := makeRows(2, 2, 100)

	_, err := NewSliceLoader(trainF, trainL[:3], testF, testL, false)
	assert.Error(t, err, "mismatched training lengths")

	_, err = NewSliceLoader(trainF, trainL, testF, testL[:1], false)
	assert.Error(t, err, "mismatched testing lengths")

	_, err = NewSliceLoader(nil, nil, testF, testL, false)
	assert.Error(t, err, "empty training set")

	_, err = NewSliceLoader(trainF, trainL, nil, nil, false)
	assert.Error(t, err, "empty testing set")
}

func TestSliceLoaderEpochSize(t *testing.T) {
	trainF, trainL := makeRows(7, 1, 0)
	testF, testL := makeRows(3, 1, 100)

	sl, err := NewSliceLoader(trainF, trainL, testF, testL, false)
	require.NoError(t, err)

	assert.Equal(t, 7, sl.EpochSize())
}

func TestSliceLoaderTrainingBatchOrder(t *testing.T) {
	trainF, trainL := makeRows(4, 1, 0)
	testF, testL := makeRows(2, 1, 100)

	sl, err := NewSliceLoader(trainF, trainL, testF, testL, false)
	require.NoError(t, err)

	batch, err := sl.TrainingBatch(3)
	require.NoError(t, err)

	labels, ok := batch.Labels.([]float64)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 2}, labels)

	// Second batch wraps past the end back to the start
	batch, err = sl.TrainingBatch(3)
	require.NoError(t, err)

	labels = batch.Labels.([]float64)
	assert.Equal(t, []float64{3, 0, 1}, labels)
}

func TestSliceLoaderShuffleCoversAllSamples(t *testing.T) {
	trainF, trainL := makeRows(10, 1, 0)
	testF, testL := makeRows(2, 1, 100)

	sl, err := NewSliceLoader(trainF, trainL, testF, testL, true)
	require.NoError(t, err)

	batch, err := sl.TrainingBatch(10)
	require.NoError(t, err)

	// One full pass visits every sample exactly once, whatever the order
	seen := make(map[float64]int)
	for _, label := range batch.Labels.([]float64) {
		seen[label]++
	}

	assert.Len(t, seen, 10)
	for label, count := range seen {
		assert.Equal(t, 1, count, "label %v", label)
	}
}

func TestSliceLoaderTestingBatchCycles(t *testing.T) {
	trainF, trainL := makeRows(4, 1, 0)
	testF, testL := makeRows(2, 1, 100)

	sl, err := NewSliceLoader(trainF, trainL, testF, testL, false)
	require.NoError(t, err)

	batch, err := sl.TestingBatch(5)
	require.NoError(t, err)

	labels := batch.Labels.([]float64)
	assert.Equal(t, []float64{100, 101, 100, 101, 100}, labels)
}

func TestSliceLoaderInvalidBatchSize(t *testing.T) {
	trainF, trainL := makeRows(4, 1, 0)
	testF, testL := makeRows(2, 1, 100)

	sl, err := NewSliceLoader(trainF, trainL, testF, testL, false)
	require.NoError(t, err)

	_, err = sl.TrainingBatch(0)
	assert.Error(t, err)

	_, err = sl.TestingBatch(-1)
	assert.Error(t, err)
}

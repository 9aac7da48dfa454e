package training

import (
	"fmt"
	"math/rand"
)

// SliceLoader is a Loader over in-memory feature rows and scalar labels.
// Training batches walk the training set in order (reshuffled each pass
// when shuffling is enabled); testing batches sample the held-out set.
// It is the in-memory counterpart of streaming loaders callers may supply.
type SliceLoader struct {
	trainFeatures [][]float64
	trainLabels   []float64
	testFeatures  [][]float64
	testLabels    []float64
	shuffle       bool
	indices       []int
	position      int
	testPosition  int
}

// NewSliceLoader creates a SliceLoader over the given training and
// testing sets. Feature and label slices must be the same length.
func NewSliceLoader(trainFeatures [][]float64, trainLabels []float64, testFeatures [][]float64, testLabels []float64, shuffle bool) (*SliceLoader, error) {
	if len(trainFeatures) != len(trainLabels) {
		return nil, fmt.Errorf("training features and labels must have the same length: got %d and %d", len(trainFeatures), len(trainLabels))
	}

	if len(testFeatures) != len(testLabels) {
		return nil, fmt.Errorf("testing features and labels must have the same length: got %d and %d", len(testFeatures), len(testLabels))
	}

	if len(trainFeatures) == 0 {
		return nil, fmt.Errorf("training set must not be empty")
	}

	if len(testFeatures) == 0 {
		return nil, fmt.Errorf("testing set must not be empty")
	}

	indices := make([]int, len(trainFeatures))
	for i := range indices {
		indices[i] = i
	}

	sl := &SliceLoader{
		trainFeatures: trainFeatures,
		trainLabels:   trainLabels,
		testFeatures:  testFeatures,
		testLabels:    testLabels,
		shuffle:       shuffle,
		indices:       indices,
	}

	if shuffle {
		sl.reshuffle()
	}

	return sl, nil
}

// EpochSize returns the number of training samples
func (sl *SliceLoader) EpochSize() int {
	return len(sl.trainFeatures)
}

// TrainingBatch returns the next size training samples, wrapping to the
// start of the set (and reshuffling, if enabled) when it runs out
func (sl *SliceLoader) TrainingBatch(size int) (Batch, error) {
	if size <= 0 {
		return Batch{}, fmt.Errorf("batch size must be positive, got %d", size)
	}

	features := make([][]float64, size)
	labels := make([]float64, size)

	for i := 0; i < size; i++ {
		if sl.position >= len(sl.indices) {
			sl.position = 0
			if sl.shuffle {
				sl.reshuffle()
			}
		}

		idx := sl.indices[sl.position]
		features[i] = sl.trainFeatures[idx]
		labels[i] = sl.trainLabels[idx]
		sl.position++
	}

	return Batch{Features: features, Labels: labels}, nil
}

// TestingBatch returns the next size samples from the held-out set,
// cycling when it runs out
func (sl *SliceLoader) TestingBatch(size int) (Batch, error) {
	if size <= 0 {
		return Batch{}, fmt.Errorf("batch size must be positive, got %d", size)
	}

	features := make([][]float64, size)
	labels := make([]float64, size)

	for i := 0; i < size; i++ {
		idx := sl.testPosition % len(sl.testFeatures)
		features[i] = sl.testFeatures[idx]
		labels[i] = sl.testLabels[idx]
		sl.testPosition++
	}

	return Batch{Features: features, Labels: labels}, nil
}

// reshuffle permutes the training order for a new pass
func (sl *SliceLoader) reshuffle() {
	for i := len(sl.indices) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		sl.indices[i], sl.indices[j] = sl.indices[j], sl.indices[i]
	}
}

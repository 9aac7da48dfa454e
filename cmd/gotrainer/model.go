package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/tsawler/go-trainer/training"
)

// linearModel is a least-squares linear regressor trained with SGD. It
// exists to give the demo CLI a complete Model implementation; the
// harness itself never depends on it.
type linearModel struct {
	weights []float64
	bias    float64
	lr      float64
}

func newLinearModel(dim int, lr float64) *linearModel {
	weights := make([]float64, dim)
	for i := range weights {
		weights[i] = rand.Float64()*0.2 - 0.1
	}

	return &linearModel{
		weights: weights,
		bias:    0,
		lr:      lr,
	}
}

// TrainStep runs one SGD step on the batch and returns the batch MSE
func (m *linearModel) TrainStep(b training.Batch) ([]float64, error) {
	return m.step(b, true)
}

// EvalStep returns the batch MSE without updating parameters
func (m *linearModel) EvalStep(b training.Batch) ([]float64, error) {
	return m.step(b, false)
}

func (m *linearModel) step(b training.Batch, update bool) ([]float64, error) {
	features, ok := b.Features.([][]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected feature type %T", b.Features)
	}

	labels, ok := b.Labels.([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected label type %T", b.Labels)
	}

	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("malformed batch: %d feature rows, %d labels", len(features), len(labels))
	}

	n := float64(len(features))
	gradW := make([]float64, len(m.weights))
	var gradB, loss float64

	for i, row := range features {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("feature row %d has %d values, model expects %d", i, len(row), len(m.weights))
		}

		pred := m.bias
		for j, x := range row {
			pred += m.weights[j] * x
		}

		diff := pred - labels[i]
		loss += diff * diff

		if update {
			for j, x := range row {
				gradW[j] += 2 * diff * x
			}
			gradB += 2 * diff
		}
	}

	if update {
		for j := range m.weights {
			m.weights[j] -= m.lr * gradW[j] / n
		}
		m.bias -= m.lr * gradB / n
	}

	return []float64{loss / n}, nil
}

// modelState is the serialized parameter form
type modelState struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// SaveState writes the parameters as JSON
func (m *linearModel) SaveState(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	state := modelState{Weights: m.weights, Bias: m.bias}
	if err := encoder.Encode(&state); err != nil {
		return fmt.Errorf("failed to encode model state: %v", err)
	}

	return nil
}

// LoadState restores the parameters from JSON
func (m *linearModel) LoadState(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open state file: %v", err)
	}
	defer file.Close()

	var state modelState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode model state: %v", err)
	}

	if len(state.Weights) != len(m.weights) {
		return fmt.Errorf("state has %d weights, model expects %d", len(state.Weights), len(m.weights))
	}

	m.weights = state.Weights
	m.bias = state.Bias

	return nil
}

// syntheticLoader builds a SliceLoader over a noisy linear target so the
// demo converges quickly and visibly
func syntheticLoader(trainSize, testSize, dim int) (*training.SliceLoader, error) {
	target := make([]float64, dim)
	for i := range target {
		target[i] = float64(i + 1)
	}

	gen := func(n int) ([][]float64, []float64) {
		features := make([][]float64, n)
		labels := make([]float64, n)
		for i := range features {
			row := make([]float64, dim)
			y := -1.0
			for j := range row {
				row[j] = rand.Float64()*2 - 1
				y += target[j] * row[j]
			}
			features[i] = row
			labels[i] = y + rand.NormFloat64()*0.05
		}
		return features, labels
	}

	trainFeatures, trainLabels := gen(trainSize)
	testFeatures, testLabels := gen(testSize)

	return training.NewSliceLoader(trainFeatures, trainLabels, testFeatures, testLabels, true)
}

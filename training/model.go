package training

import "time"

// Batch holds one minibatch of features and labels. The harness never
// inspects the contents; both fields are passed through to the model
// exactly as the loader produced them.
type Batch struct {
	Features any
	Labels   any
}

// Model is the trainable model contract. The harness drives the loop and
// owns checkpoint naming; everything about the model itself (architecture,
// loss, parameter serialization format) lives behind this interface.
//
// TrainStep and EvalStep return one metric value per configured metric
// name, in the same order as the names passed to New.
type Model interface {
	// TrainStep runs one optimization step on the batch
	TrainStep(b Batch) ([]float64, error)

	// EvalStep evaluates the batch without updating parameters
	EvalStep(b Batch) ([]float64, error)

	// SaveState persists model parameters to path
	SaveState(path string) error

	// LoadState restores model parameters from path
	LoadState(path string) error
}

// Loader is the data source contract
type Loader interface {
	// EpochSize returns the number of training samples in one epoch
	EpochSize() int

	// TrainingBatch returns the next training batch of the given size
	TrainingBatch(size int) (Batch, error)

	// TestingBatch returns an evaluation batch of the given size
	TestingBatch(size int) (Batch, error)
}

// EpochResult summarizes one completed epoch for external recorders
type EpochResult struct {
	RunID      string
	Name       string
	Epoch      int
	Train      map[string]float64
	Test       map[string]float64
	FinishedAt time.Time
}

// Recorder receives one EpochResult per completed epoch. Implementations
// may persist them anywhere (see the history package for a SQLite-backed
// one); a nil recorder on the harness disables recording entirely.
type Recorder interface {
	RecordEpoch(r EpochResult) error
}

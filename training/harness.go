package training

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/go-trainer/checkpoints"
	"github.com/tsawler/go-trainer/trainlog"
)

const (
	// DefaultSmoothingWindow is the moving-average window used for
	// progress display
	DefaultSmoothingWindow = 100

	// DefaultCheckpointExt is the checkpoint file extension used when
	// the caller does not override it
	DefaultCheckpointExt = "ckpt"
)

// Harness drives epoch-based supervised training over an opaque model
// and data loader: it owns the epoch counter, the minibatch loop, the
// running and per-epoch metric aggregates, checkpoint naming, and the
// epoch log. It is single-threaded; one Train or Load call owns the
// model and the log file for its duration.
type Harness struct {
	name     string
	model    Model
	loader   Loader
	metrics  []string
	epoch    int
	logPath  string
	out      io.Writer
	recorder Recorder
	ckptExt  string
	window   int
	runID    string
}

// Option configures a Harness
type Option func(*Harness)

// WithLogPath overrides the default <name>.log epoch log path
func WithLogPath(path string) Option {
	return func(h *Harness) {
		h.logPath = path
	}
}

// WithOutput redirects progress and status output (default: os.Stdout)
func WithOutput(w io.Writer) Option {
	return func(h *Harness) {
		h.out = w
	}
}

// WithRecorder attaches a per-epoch result recorder
func WithRecorder(r Recorder) Option {
	return func(h *Harness) {
		h.recorder = r
	}
}

// WithCheckpointExt overrides the checkpoint file extension
func WithCheckpointExt(ext string) Option {
	return func(h *Harness) {
		h.ckptExt = ext
	}
}

// WithSmoothingWindow overrides the progress moving-average window
func WithSmoothingWindow(n int) Option {
	return func(h *Harness) {
		h.window = n
	}
}

// New creates a Harness for a constructed model and loader. The metric
// names define both the order model step outputs are interpreted in and
// the order they appear in the log. The epoch counter starts at 1.
func New(name string, model Model, loader Loader, metrics []string, opts ...Option) (*Harness, error) {
	if name == "" {
		return nil, fmt.Errorf("harness name must not be empty")
	}

	if model == nil {
		return nil, fmt.Errorf("model must not be nil")
	}

	if loader == nil {
		return nil, fmt.Errorf("loader must not be nil")
	}

	if len(metrics) == 0 {
		return nil, fmt.Errorf("at least one metric name is required")
	}

	h := &Harness{
		name:    name,
		model:   model,
		loader:  loader,
		metrics: metrics,
		epoch:   1,
		out:     os.Stdout,
		ckptExt: DefaultCheckpointExt,
		window:  DefaultSmoothingWindow,
		runID:   uuid.NewString(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logPath == "" {
		h.logPath = fmt.Sprintf("%s.log", name)
	}

	if h.window <= 0 {
		h.window = DefaultSmoothingWindow
	}

	return h, nil
}

// Name returns the harness name used for checkpoint and log naming
func (h *Harness) Name() string {
	return h.name
}

// Epoch returns the current epoch number (1-based)
func (h *Harness) Epoch() int {
	return h.epoch
}

// RunID returns the unique identifier for this harness instance,
// recorded in checkpoint manifests and epoch results
func (h *Harness) RunID() string {
	return h.runID
}

// LogPath returns the epoch log file path
func (h *Harness) LogPath() string {
	return h.logPath
}

// Load restores the model from the checkpoint for epoch in dir. A
// missing checkpoint file is reported on the output writer and leaves
// the model untouched. In both cases training resumes at epoch+1; a
// caller that loads epoch 5 always continues with epoch 6, matching the
// checkpoint naming scheme rather than the filesystem contents.
func (h *Harness) Load(epoch int, dir string) error {
	if epoch <= 0 {
		return fmt.Errorf("epoch must be positive, got %d", epoch)
	}

	store := checkpoints.NewStore(dir, h.name, h.ckptExt)

	found, err := store.Load(h.model, epoch)
	if err != nil {
		return err
	}

	if !found {
		fmt.Fprintf(h.out, "Checkpoint file %s does not exist\n", store.Path(epoch))
	}

	h.epoch = epoch + 1

	return nil
}

// Resume loads the most recent checkpoint in dir. It fails when the
// directory holds no checkpoints for this harness name.
func (h *Harness) Resume(dir string) error {
	store := checkpoints.NewStore(dir, h.name, h.ckptExt)

	latest, ok, err := store.Latest()
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("no checkpoints for %q in %s", h.name, dir)
	}

	return h.Load(latest, dir)
}

// Train runs epochs from the current epoch through cfg.Epochs inclusive.
// Every epoch trains EpochSize/BatchSize minibatches, evaluates on every
// minibatch index divisible by cfg.TestFrequency, persists a checkpoint,
// and appends one block to the epoch log. The first failure from the
// model, loader, or filesystem aborts the run.
func (h *Harness) Train(cfg Config) error {
	if cfg.SaveDir == "" {
		cfg.SaveDir = DefaultConfig().SaveDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid training configuration: %v", err)
	}

	mbPerEpoch := h.loader.EpochSize() / cfg.BatchSize
	if mbPerEpoch == 0 {
		return fmt.Errorf("zero minibatches per epoch: epoch size %d is smaller than batch size %d", h.loader.EpochSize(), cfg.BatchSize)
	}

	log, err := trainlog.Open(h.logPath, h.epoch > 1)
	if err != nil {
		return err
	}
	defer log.Close()

	store := checkpoints.NewStore(cfg.SaveDir, h.name, h.ckptExt)

	for epoch := h.epoch; epoch <= cfg.Epochs; epoch++ {
		h.epoch = epoch
		if err := h.runEpoch(epoch, mbPerEpoch, cfg, store, log); err != nil {
			return fmt.Errorf("epoch %d: %v", epoch, err)
		}
	}

	return nil
}

// runEpoch trains all minibatches of one epoch, then checkpoints and logs
func (h *Harness) runEpoch(epoch, mbPerEpoch int, cfg Config, store *checkpoints.Store, log *trainlog.Log) error {
	fmt.Fprintf(h.out, "Epoch %d\n", epoch)

	tracker := newMetricTracker(h.metrics, h.window)
	progress := NewProgressBar(h.out, fmt.Sprintf("Epoch %d", epoch), mbPerEpoch, h.metrics)

	for mb := 0; mb < mbPerEpoch; mb++ {
		batch, err := h.loader.TrainingBatch(cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch training batch: %v", err)
		}

		vals, err := h.model.TrainStep(batch)
		if err != nil {
			return fmt.Errorf("training step failed: %v", err)
		}

		if err := tracker.observeTrain(vals); err != nil {
			return err
		}

		// Index 0 always qualifies, so every epoch evaluates at least once
		if mb%cfg.TestFrequency == 0 {
			testBatch, err := h.loader.TestingBatch(cfg.BatchSize)
			if err != nil {
				return fmt.Errorf("failed to fetch testing batch: %v", err)
			}

			testVals, err := h.model.EvalStep(testBatch)
			if err != nil {
				return fmt.Errorf("evaluation step failed: %v", err)
			}

			if err := tracker.observeTest(testVals); err != nil {
				return err
			}
		}

		progress.Update(mb+1, tracker.smoothed())
	}

	progress.Finish()

	trainAvgs := tracker.trainAverages()
	testAvgs := tracker.testAverages()

	if tracker.testSteps > 0 {
		fmt.Fprintln(h.out, "Testing metrics:")
		for i, name := range h.metrics {
			fmt.Fprintf(h.out, "%s: %.3f\n", name, testAvgs[i])
		}
		fmt.Fprintln(h.out)
	}

	err := store.Save(h.model, checkpoints.Manifest{
		Epoch:        epoch,
		RunID:        h.runID,
		TrainMetrics: tracker.asMap(trainAvgs),
		TestMetrics:  tracker.asMap(testAvgs),
	})
	if err != nil {
		return err
	}

	if err := log.WriteEpoch(epoch, h.metrics, trainAvgs, testAvgs); err != nil {
		return err
	}

	if h.recorder != nil {
		result := EpochResult{
			RunID:      h.runID,
			Name:       h.name,
			Epoch:      epoch,
			Train:      tracker.asMap(trainAvgs),
			Test:       tracker.asMap(testAvgs),
			FinishedAt: time.Now(),
		}
		if err := h.recorder.RecordEpoch(result); err != nil {
			return fmt.Errorf("failed to record epoch result: %v", err)
		}
	}

	return nil
}

package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Persistable is the slice of the model contract the store needs: the
// model owns its parameter serialization format, the store owns naming
// and placement.
type Persistable interface {
	SaveState(path string) error
	LoadState(path string) error
}

// Manifest carries checkpoint metadata alongside the opaque model state
type Manifest struct {
	Name         string             `json:"name"`
	Epoch        int                `json:"epoch"`
	RunID        string             `json:"run_id,omitempty"`
	Framework    string             `json:"framework"`
	Version      string             `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	TrainMetrics map[string]float64 `json:"train_metrics,omitempty"`
	TestMetrics  map[string]float64 `json:"test_metrics,omitempty"`
}

// Store saves and loads model checkpoints under a single directory using
// the naming scheme <dir>/<name>_<epoch>.<ext>. Old checkpoints are never
// pruned; every epoch of a run stays resumable.
type Store struct {
	dir  string
	name string
	ext  string
}

// NewStore creates a checkpoint store for the given directory, model
// name, and file extension (without the leading dot)
func NewStore(dir, name, ext string) *Store {
	return &Store{
		dir:  dir,
		name: name,
		ext:  ext,
	}
}

// Path returns the checkpoint file path for an epoch
func (s *Store) Path(epoch int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d.%s", s.name, epoch, s.ext))
}

// ManifestPath returns the metadata sidecar path for an epoch
func (s *Store) ManifestPath(epoch int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d.meta.json", s.name, epoch))
}

// EnsureDir creates the checkpoint directory if it is missing
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

// Save persists the model state for manifest.Epoch and writes the
// metadata sidecar next to it
func (s *Store) Save(m Persistable, manifest Manifest) error {
	if err := s.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %v", err)
	}

	if manifest.Framework == "" {
		manifest.Framework = "go-trainer"
		manifest.Version = "1.0.0"
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}
	manifest.Name = s.name

	if err := m.SaveState(s.Path(manifest.Epoch)); err != nil {
		return fmt.Errorf("failed to save model state: %v", err)
	}

	file, err := os.Create(s.ManifestPath(manifest.Epoch))
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(&manifest); err != nil {
		return fmt.Errorf("failed to encode manifest: %v", err)
	}

	return nil
}

// Load restores the model state for an epoch. A missing checkpoint file
// is not an error: Load returns (false, nil) and leaves the model
// untouched. The directory is created if needed so a fresh run and a
// resumed run look the same to callers.
func (s *Store) Load(m Persistable, epoch int) (bool, error) {
	if err := s.EnsureDir(); err != nil {
		return false, fmt.Errorf("failed to create checkpoint directory: %v", err)
	}

	path := s.Path(epoch)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	if err := m.LoadState(path); err != nil {
		return false, fmt.Errorf("failed to load model state from %s: %v", path, err)
	}

	return true, nil
}

// LoadManifest reads the metadata sidecar for an epoch
func (s *Store) LoadManifest(epoch int) (*Manifest, error) {
	file, err := os.Open(s.ManifestPath(epoch))
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %v", err)
	}
	defer file.Close()

	var manifest Manifest
	if err := json.NewDecoder(file).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %v", err)
	}

	return &manifest, nil
}

// List returns the epochs that have checkpoint files in the store
// directory, in ascending order. A missing directory lists as empty.
func (s *Store) List() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %v", err)
	}

	prefix := s.name + "_"
	suffix := "." + s.ext

	var epochs []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fname := entry.Name()
		if !strings.HasPrefix(fname, prefix) || !strings.HasSuffix(fname, suffix) {
			continue
		}

		middle := strings.TrimSuffix(strings.TrimPrefix(fname, prefix), suffix)
		epoch, err := strconv.Atoi(middle)
		if err != nil {
			continue // unrelated file that happens to share the prefix
		}

		epochs = append(epochs, epoch)
	}

	sort.Ints(epochs)

	return epochs, nil
}

// Latest returns the highest checkpointed epoch, with ok=false when the
// store holds no checkpoints
func (s *Store) Latest() (epoch int, ok bool, err error) {
	epochs, err := s.List()
	if err != nil {
		return 0, false, err
	}

	if len(epochs) == 0 {
		return 0, false, nil
	}

	return epochs[len(epochs)-1], true, nil
}

package training

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config provides the parameters for one training run
type Config struct {
	// Epochs is the last epoch to train through (inclusive, 1-based)
	Epochs int `yaml:"epochs" json:"epochs"`

	// BatchSize is the minibatch size for both training and testing steps
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// TestFrequency runs an evaluation step on every minibatch index
	// divisible by it; index 0 always qualifies, so every epoch tests
	// at least once
	TestFrequency int `yaml:"test_frequency" json:"test_frequency"`

	// SaveDir is where checkpoints are written (default: "weights")
	SaveDir string `yaml:"save_dir" json:"save_dir"`
}

// DefaultConfig returns a configuration with the default save directory
func DefaultConfig() Config {
	return Config{
		SaveDir: "weights",
	}
}

// LoadConfig reads a Config from a YAML file. Fields left out of the
// file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %v", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	return config, nil
}

// Validate checks the configuration for values that would otherwise
// surface later as divide-by-zero faults in the training loop
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}

	if c.TestFrequency <= 0 {
		return fmt.Errorf("test frequency must be positive, got %d", c.TestFrequency)
	}

	if c.SaveDir == "" {
		return fmt.Errorf("save directory must not be empty")
	}

	return nil
}

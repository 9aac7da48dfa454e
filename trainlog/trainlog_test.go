package trainlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("old content\n"), 0644))

	log, err := Open(path, false)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.WriteEpoch(1, []string{"loss"}, []float64{1}, []float64{2}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\nEpoch 1\nTrain loss: 1.000\nTest  loss: 2.000\n", string(content))
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("\nEpoch 1\nTrain loss: 1.000\nTest  loss: 2.000\n"), 0644))

	log, err := Open(path, true)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.WriteEpoch(2, []string{"loss"}, []float64{0.5}, []float64{0.75}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"\nEpoch 1\nTrain loss: 1.000\nTest  loss: 2.000\n"+
			"\nEpoch 2\nTrain loss: 0.500\nTest  loss: 0.750\n",
		string(content))
}

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	// resume=true on a fresh path must still work: the first epoch of a
	// resumed run may be the first thing ever logged at that location
	log, err := Open(path, true)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.WriteEpoch(3, []string{"loss"}, []float64{1}, []float64{1}))
	assert.FileExists(t, path)
}

func TestWriteEpochMetricCountMismatch(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "run.log"), false)
	require.NoError(t, err)
	defer log.Close()

	err = log.WriteEpoch(1, []string{"loss", "acc"}, []float64{1}, []float64{2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metric count mismatch")
}

func TestEpochBlockFormatGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	log, err := Open(path, false)
	require.NoError(t, err)

	names := []string{"loss", "acc"}
	require.NoError(t, log.WriteEpoch(1, names, []float64{0.5, 0.9}, []float64{0.6, 0.85}))
	require.NoError(t, log.WriteEpoch(2, names, []float64{0.4, 0.92}, []float64{0.45, 0.9}))
	require.NoError(t, log.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "epoch_blocks", content)
}

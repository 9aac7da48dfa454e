// Package trainlog persists the per-epoch training summary as a plain
// text file of epoch-delimited blocks:
//
//	Epoch <n>
//	Train <metric>: <value>
//	Test  <metric>: <value>
//
// The file is logically append-only: a fresh run truncates whatever is
// at the path, a resumed run appends after the existing blocks. Each
// block is written with a single Write call so an interrupted run leaves
// at most one ragged block at the tail.
package trainlog

import (
	"fmt"
	"os"
	"strings"
)

// Log is an open epoch log file
type Log struct {
	file *os.File
	path string
}

// Open opens the log at path. With resume false the file is truncated
// (the run starts over from epoch 1); with resume true new blocks are
// appended after any existing content.
func Open(path string, resume bool) (*Log, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	return &Log{
		file: file,
		path: path,
	}, nil
}

// Path returns the log file path
func (l *Log) Path() string {
	return l.path
}

// WriteEpoch appends one epoch block. The three slices are positionally
// aligned: names[i] labels train[i] and test[i].
func (l *Log) WriteEpoch(epoch int, names []string, train, test []float64) error {
	if len(train) != len(names) || len(test) != len(names) {
		return fmt.Errorf("metric count mismatch: %d names, %d train values, %d test values", len(names), len(train), len(test))
	}

	var block strings.Builder
	fmt.Fprintf(&block, "\nEpoch %d\n", epoch)
	for i, name := range names {
		fmt.Fprintf(&block, "Train %s: %.3f\n", name, train[i])
		fmt.Fprintf(&block, "Test  %s: %.3f\n", name, test[i])
	}

	if _, err := l.file.WriteString(block.String()); err != nil {
		return fmt.Errorf("failed to write epoch block: %v", err)
	}

	return nil
}

// Close closes the underlying file
func (l *Log) Close() error {
	return l.file.Close()
}

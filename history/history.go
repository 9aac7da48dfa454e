// Package history records per-epoch training results in a SQLite
// database so runs can be compared after the fact. It implements
// training.Recorder; wiring it into a harness is optional.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tsawler/go-trainer/training"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS epoch_metrics (
	run_id      TEXT NOT NULL,
	epoch       INTEGER NOT NULL,
	metric      TEXT NOT NULL,
	train_avg   REAL NOT NULL,
	test_avg    REAL NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, epoch, metric)
);
`

// Store is a SQLite-backed run history
type Store struct {
	db *sql.DB
}

// Run identifies one training run
type Run struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// EpochMetric is one metric's averages for one epoch of a run
type EpochMetric struct {
	RunID      string
	Epoch      int
	Metric     string
	TrainAvg   float64
	TestAvg    float64
	FinishedAt time.Time
}

// Open opens (and if needed initializes) the history database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %v", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordEpoch stores one epoch's averages. The run row is created on the
// first epoch recorded for its ID; re-recording an epoch replaces it.
func (s *Store) RecordEpoch(r training.EpochResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR IGNORE INTO runs (id, name, started_at) VALUES (?, ?, ?)`,
		r.RunID, r.Name, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %v", err)
	}

	for metric, trainAvg := range r.Train {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO epoch_metrics (run_id, epoch, metric, train_avg, test_avg, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Epoch, metric, trainAvg, r.Test[metric], r.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record epoch metric %s: %v", metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit epoch record: %v", err)
	}

	return nil
}

// Runs returns all recorded runs, oldest first
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, name, started_at FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %v", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %v", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Epochs returns every epoch metric recorded for a run, ordered by
// epoch then metric name
func (s *Store) Epochs(runID string) ([]EpochMetric, error) {
	rows, err := s.db.Query(
		`SELECT run_id, epoch, metric, train_avg, test_avg, finished_at
		 FROM epoch_metrics WHERE run_id = ? ORDER BY epoch, metric`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query epoch metrics: %v", err)
	}
	defer rows.Close()

	var metrics []EpochMetric
	for rows.Next() {
		var m EpochMetric
		if err := rows.Scan(&m.RunID, &m.Epoch, &m.Metric, &m.TrainAvg, &m.TestAvg, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan epoch metric: %v", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

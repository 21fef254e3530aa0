// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run records one merge invocation.
type Run struct {
	ID          int64
	OutPath     string
	APath       string
	BPath       string
	ADefs       int
	BDefs       int
	OutDefs     int
	OutBytes    int64
	WastedBytes int64
	Compacted   bool
	DurationMS  int64
	Timestamp   time.Time
}

// Store handles database operations
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default history database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".dexmerge", "history.db"), nil
}

// Open initializes the SQLite database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		out_path TEXT NOT NULL,
		a_path TEXT NOT NULL,
		b_path TEXT NOT NULL,
		a_defs INTEGER NOT NULL,
		b_defs INTEGER NOT NULL,
		out_defs INTEGER NOT NULL,
		out_bytes INTEGER NOT NULL,
		wasted_bytes INTEGER NOT NULL,
		compacted INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_out_path ON runs(out_path);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one merge run.
func (s *Store) Record(run *Run) error {
	query := `
	INSERT INTO runs (out_path, a_path, b_path, a_defs, b_defs, out_defs,
		out_bytes, wasted_bytes, compacted, duration_ms, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, run.OutPath, run.APath, run.BPath,
		run.ADefs, run.BDefs, run.OutDefs, run.OutBytes, run.WastedBytes,
		run.Compacted, run.DurationMS, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
	SELECT id, out_path, a_path, b_path, a_defs, b_defs, out_defs,
		out_bytes, wasted_bytes, compacted, duration_ms, timestamp
	FROM runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var run Run
		var ts time.Time
		if err := rows.Scan(&run.ID, &run.OutPath, &run.APath, &run.BPath,
			&run.ADefs, &run.BDefs, &run.OutDefs, &run.OutBytes,
			&run.WastedBytes, &run.Compacted, &run.DurationMS, &ts); err != nil {
			continue
		}
		run.Timestamp = ts
		results = append(results, run)
	}
	return results, rows.Err()
}

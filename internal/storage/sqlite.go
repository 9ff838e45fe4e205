// Package storage is the SQLite results catalog. Stages append their
// processed tables keyed by a run id, so outputs stay queryable ad hoc after
// the pipeline finishes. No stage reads from the catalog.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection with catalog operations.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open creates or opens a SQLite database at the given path and applies migrations.
func Open(path string, logger *slog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("catalog opened", "path", path)
	return db, nil
}

// BeginRun records a stage run and returns its id. Parameters are stored as
// JSON for later inspection.
func (db *DB) BeginRun(ctx context.Context, stage string, params any) (string, error) {
	blob, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode run parameters: %w", err)
	}
	runID := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (run_id, stage, started_at, parameters) VALUES (?, ?, ?, ?)`,
		runID, stage, time.Now().UTC().Format(time.RFC3339), string(blob))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	db.logger.Info("run started", "run_id", runID, "stage", stage)
	return runID, nil
}

// FinishRun stamps the run's completion time.
func (db *DB) FinishRun(ctx context.Context, runID string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

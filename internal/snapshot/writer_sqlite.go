package snapshot

import (
	"PerfSpectra/internal/model"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS page_metric_summaries (
    timestamp  TEXT    NOT NULL,
    backend    TEXT    NOT NULL,
    page_group TEXT    NOT NULL,
    metric     TEXT    NOT NULL,
    count      INTEGER NOT NULL,
    min        REAL    NOT NULL,
    p10        REAL    NOT NULL,
    median     REAL    NOT NULL,
    mean       REAL    NOT NULL,
    p90        REAL    NOT NULL,
    p99        REAL    NOT NULL,
    max        REAL    NOT NULL,
    PRIMARY KEY (timestamp, page_group, metric)
)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_group_metric ON page_metric_summaries(page_group, metric)`,
}

const insertSQLiteRow = `
INSERT OR REPLACE INTO page_metric_summaries
    (timestamp, backend, page_group, metric, count, min, p10, median, mean, p90, p99, max)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// SQLiteWriter stores snapshot rows in a local SQLite database.
type SQLiteWriter struct {
	log      logrus.FieldLogger
	db       *sql.DB
	path     string
	interval time.Duration
}

// NewSQLiteWriter opens (or creates) the database at path and ensures its schema.
func NewSQLiteWriter(ctx context.Context, path string, interval time.Duration, log logrus.FieldLogger) (*SQLiteWriter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteWriter{
		log:      log.WithField("writer", TypeSQLite),
		db:       db,
		path:     path,
		interval: interval,
	}, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *SQLiteWriter) GetInterval() time.Duration {
	return w.interval
}

// Path returns the database file path.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// Write inserts the snapshot rows in a single transaction.
func (w *SQLiteWriter) Write(ctx context.Context, snapshot model.Snapshot) (err error) {
	rows := Rows(snapshot)
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQLiteRow)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err = stmt.ExecContext(ctx,
			r.Time.UTC().Format(time.RFC3339),
			r.Backend,
			r.Group,
			r.Metric,
			r.Count,
			r.Min,
			r.P10,
			r.Median,
			r.Mean,
			r.P90,
			r.P99,
			r.Max,
		)
		if err != nil {
			return fmt.Errorf("failed to insert summary for %s/%s: %w", r.Group, r.Metric, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	w.log.WithField("rows", len(rows)).Debug("Wrote summaries to SQLite")
	return nil
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

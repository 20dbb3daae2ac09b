package query

import (
	"PerfSpectra/internal/snapshot"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type sqliteQuerier struct {
	db *sql.DB
}

// NewSQLiteQuerier opens the database written by the SQLite writer at path.
func NewSQLiteQuerier(ctx context.Context, path string) (Querier, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &sqliteQuerier{db: db}, nil
}

func (q *sqliteQuerier) History(ctx context.Context, req HistoryRequest) ([]snapshot.Row, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT timestamp, backend, page_group, metric, count, min, p10, median, mean, p90, p99, max
		FROM page_metric_summaries
		WHERE page_group = ? AND metric = ?`)
	args := []any{req.Group, req.Metric}

	if !req.Since.IsZero() {
		queryBuilder.WriteString(" AND timestamp >= ?")
		args = append(args, req.Since.UTC().Format(time.RFC3339))
	}
	queryBuilder.WriteString(" ORDER BY timestamp DESC LIMIT ?")
	args = append(args, limitOf(req))

	rows, err := q.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute history query: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Row
	for rows.Next() {
		var (
			r  snapshot.Row
			ts string
		)
		if err := rows.Scan(&ts, &r.Backend, &r.Group, &r.Metric, &r.Count,
			&r.Min, &r.P10, &r.Median, &r.Mean, &r.P90, &r.P99, &r.Max); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if r.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("invalid stored timestamp '%s': %w", ts, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *sqliteQuerier) Close() error {
	return q.db.Close()
}

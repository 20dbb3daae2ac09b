package query

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/snapshot"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(ctx context.Context, cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := snapshot.ConnectClickHouse(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// History builds and executes the history query for one group and metric.
func (q *clickhouseQuerier) History(ctx context.Context, req HistoryRequest) ([]snapshot.Row, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Timestamp, Backend, PageGroup, Metric, Count, Min, P10, Median, Mean, P90, P99, Max
		FROM page_metric_summaries
		WHERE PageGroup = ? AND Metric = ?`)
	args := []any{req.Group, req.Metric}

	if !req.Since.IsZero() {
		queryBuilder.WriteString(" AND Timestamp >= ?")
		args = append(args, req.Since)
	}
	queryBuilder.WriteString(" ORDER BY Timestamp DESC LIMIT ?")
	args = append(args, limitOf(req))

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute history query: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Row
	for rows.Next() {
		var (
			r     snapshot.Row
			ts    time.Time
			count uint64
		)
		if err := rows.Scan(&ts, &r.Backend, &r.Group, &r.Metric, &count,
			&r.Min, &r.P10, &r.Median, &r.Mean, &r.P90, &r.P99, &r.Max); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.Time = ts
		r.Count = int(count)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}

package snapshot

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createClickHouseTable = `
CREATE TABLE IF NOT EXISTS page_metric_summaries (
    Timestamp  DateTime,
    Backend    LowCardinality(String),
    PageGroup  String,
    Metric     LowCardinality(String),
    Count      UInt64,
    Min        Float64,
    P10        Float64,
    Median     Float64,
    Mean       Float64,
    P90        Float64,
    P99        Float64,
    Max        Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (PageGroup, Metric, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	log      logrus.FieldLogger
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects to ClickHouse and ensures the summary table exists.
func NewClickHouseWriter(ctx context.Context, cfg config.ClickHouseConfig, interval time.Duration, log logrus.FieldLogger) (model.Writer, error) {
	conn, err := ConnectClickHouse(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, createClickHouseTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	log = log.WithField("writer", TypeClickHouse)
	log.WithField("host", cfg.Host).Info("Connected to ClickHouse and ensured table exists")

	return &ClickHouseWriter{log: log, conn: conn, interval: interval}, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// ConnectClickHouse opens and pings a ClickHouse connection.
func ConnectClickHouse(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts one row per group and metric into page_metric_summaries.
func (w *ClickHouseWriter) Write(ctx context.Context, snapshot model.Snapshot) error {
	rows := Rows(snapshot)
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO page_metric_summaries")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.Time,
			r.Backend,
			r.Group,
			r.Metric,
			uint64(r.Count),
			r.Min,
			r.P10,
			r.Median,
			r.Mean,
			r.P90,
			r.P99,
			r.Max,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append summary to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.log.WithField("rows", len(rows)).Info("Wrote summaries to ClickHouse")
	return nil
}

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

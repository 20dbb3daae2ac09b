package model

import (
	"context"
	"time"
)

// Snapshot is a point-in-time copy of the aggregated summaries.
type Snapshot struct {
	Time     time.Time
	Backend  string
	Summary  *SummaryResult
	Global   GroupSummary
	Ingested uint64
	Failed   uint64

	// URL of the audit whose ingestion triggered the snapshot; empty for scheduled snapshots.
	URL string
}

// Writer persists snapshots to a store.
type Writer interface {
	// Write persists one snapshot. Writers skip snapshots without a summary.
	Write(ctx context.Context, snapshot Snapshot) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration

	// Close releases the writer's resources.
	Close() error
}

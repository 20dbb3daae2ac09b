package probe

import (
	"PerfSpectra/internal/model"
	"context"
	"time"
)

// SummaryWriter publishes snapshots on the summary subject, letting the manager
// schedule publication like any other writer.
type SummaryWriter struct {
	pub      *Publisher
	interval time.Duration
}

// NewSummaryWriter wraps pub as a model.Writer.
func NewSummaryWriter(pub *Publisher, interval time.Duration) model.Writer {
	return &SummaryWriter{pub: pub, interval: interval}
}

func (w *SummaryWriter) Write(_ context.Context, snapshot model.Snapshot) error {
	return w.pub.PublishSummary(snapshot)
}

func (w *SummaryWriter) GetInterval() time.Duration {
	return w.interval
}

// Close leaves the publisher open; its owner closes it.
func (w *SummaryWriter) Close() error {
	return nil
}

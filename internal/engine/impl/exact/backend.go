package exact

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/impl/exact/statistic"
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/model"
)

// --- Factory Registration ---

func init() {
	factory.RegisterBackend(config.BackendExact, func(cfg *config.Config) (model.StatsBackend, error) {
		return New(cfg.Aggregator.Decimals), nil
	})
}

// --- Backend Implementation ---

// Backend keeps every sample and computes exact statistics from them.
// It implements the model.StatsBackend interface.
type Backend struct {
	decimals int
}

// New creates an exact backend rounding its statistics to decimals places.
func New(decimals int) *Backend {
	return &Backend{decimals: decimals}
}

// Name returns the name of the backend.
func (b *Backend) Name() string {
	return config.BackendExact
}

// PushGroupStats appends value to the metric's pool in both tables.
func (b *Backend) PushGroupStats(global, group model.StatsTable, metric string, value int64) {
	pool(global, metric).Add(value)
	pool(group, metric).Add(value)
}

// SetStatsSummary stores the statistics of acc in out under name.
// Accumulators created by another backend, or empty ones, are skipped.
func (b *Backend) SetStatsSummary(out model.GroupSummary, name string, acc model.Accumulator) {
	samples, ok := acc.(*statistic.Samples)
	if !ok || samples.Count() == 0 {
		return
	}
	out[name] = samples.Summary().Rounded(b.decimals)
}

// pool returns the sample pool of metric in table, creating it on first use.
func pool(table model.StatsTable, metric string) *statistic.Samples {
	if samples, ok := table[metric].(*statistic.Samples); ok {
		return samples
	}
	samples := statistic.NewSamples()
	table[metric] = samples
	return samples
}

var _ model.StatsBackend = (*Backend)(nil)

package sketch

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/impl/sketch/statistic"
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/model"
)

// --- Factory Registration ---

func init() {
	factory.RegisterBackend(config.BackendSketch, func(cfg *config.Config) (model.StatsBackend, error) {
		return New(cfg.Aggregator.Sketch.Alpha, cfg.Aggregator.Decimals), nil
	})
}

// --- Backend Implementation ---

// Backend summarizes each metric from a bounded-size histogram instead of the raw samples.
// It implements the model.StatsBackend interface.
type Backend struct {
	alpha    float64
	decimals int
}

// New creates a sketch backend with relative quantile accuracy alpha.
func New(alpha float64, decimals int) *Backend {
	return &Backend{alpha: alpha, decimals: decimals}
}

// Name returns the name of the backend.
func (b *Backend) Name() string {
	return config.BackendSketch
}

// PushGroupStats inserts value into the metric's histogram in both tables.
func (b *Backend) PushGroupStats(global, group model.StatsTable, metric string, value int64) {
	b.histogram(global, metric).Insert(value)
	b.histogram(group, metric).Insert(value)
}

// SetStatsSummary stores the estimated statistics of acc in out under name.
func (b *Backend) SetStatsSummary(out model.GroupSummary, name string, acc model.Accumulator) {
	h, ok := acc.(*statistic.Histogram)
	if !ok || h.Count() == 0 {
		return
	}
	out[name] = model.Statistics{
		Count:  h.Count(),
		Min:    float64(h.Min()),
		P10:    h.Quantile(0.10),
		Median: h.Quantile(0.50),
		Mean:   h.Mean(),
		P90:    h.Quantile(0.90),
		P99:    h.Quantile(0.99),
		Max:    float64(h.Max()),
	}.Rounded(b.decimals)
}

func (b *Backend) histogram(table model.StatsTable, metric string) *statistic.Histogram {
	if h, ok := table[metric].(*statistic.Histogram); ok {
		return h
	}
	h := statistic.NewHistogram(b.alpha)
	table[metric] = h
	return h
}

var _ model.StatsBackend = (*Backend)(nil)

package sketch

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/model"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Summary(t *testing.T) {
	b := New(0.01, 0)
	global := make(model.StatsTable)
	group := make(model.StatsTable)
	for v := int64(1); v <= 1000; v++ {
		b.PushGroupStats(global, group, "time-to-first-byte", v)
	}
	require.Equal(t, 1000, global["time-to-first-byte"].Count())

	out := make(model.GroupSummary)
	b.SetStatsSummary(out, "timetofirstbyte", group["time-to-first-byte"])

	stats, ok := out["timetofirstbyte"]
	require.True(t, ok)
	assert.Equal(t, 1000, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 1000.0, stats.Max)
	assert.Equal(t, 501.0, stats.Mean)
	assert.InEpsilon(t, 500.0, stats.Median, 0.02)
	assert.InEpsilon(t, 900.0, stats.P90, 0.02)
}

func TestBackend_SkipsEmpty(t *testing.T) {
	b := New(0.01, 0)
	out := make(model.GroupSummary)
	b.SetStatsSummary(out, "x", nil)
	assert.Empty(t, out)
}

func TestRegistered(t *testing.T) {
	cfg := config.Default()
	cfg.Aggregator.Backend = config.BackendSketch

	backend, err := factory.NewBackend(cfg, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, config.BackendSketch, backend.Name())
}

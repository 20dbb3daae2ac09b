package exact

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/impl/exact/statistic"
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/model"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_PushUpdatesBothTables(t *testing.T) {
	b := New(0)
	global := make(model.StatsTable)
	groupA := make(model.StatsTable)
	groupB := make(model.StatsTable)

	b.PushGroupStats(global, groupA, "dom-size", 10)
	b.PushGroupStats(global, groupA, "dom-size", 20)
	b.PushGroupStats(global, groupB, "dom-size", 30)

	assert.Equal(t, 3, global["dom-size"].Count())
	assert.Equal(t, 2, groupA["dom-size"].Count())
	assert.Equal(t, 1, groupB["dom-size"].Count())
}

func TestBackend_SetStatsSummary(t *testing.T) {
	b := New(0)
	global := make(model.StatsTable)
	group := make(model.StatsTable)
	for v := int64(1); v <= 10; v++ {
		b.PushGroupStats(global, group, "speed-index-metric", v*100)
	}

	out := make(model.GroupSummary)
	b.SetStatsSummary(out, "speedindexmetric", group["speed-index-metric"])

	stats, ok := out["speedindexmetric"]
	require.True(t, ok)
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, 100.0, stats.Min)
	assert.Equal(t, 1000.0, stats.Max)
	assert.Equal(t, 550.0, stats.Mean)
	assert.Equal(t, 550.0, stats.Median)
	assert.Equal(t, 190.0, stats.P10)
	assert.Equal(t, 910.0, stats.P90)
	assert.Equal(t, 991.0, stats.P99)
}

func TestBackend_Decimals(t *testing.T) {
	b := New(2)
	global := make(model.StatsTable)
	group := make(model.StatsTable)
	for _, v := range []int64{1, 2, 2} {
		b.PushGroupStats(global, group, "bootup-time", v)
	}

	out := make(model.GroupSummary)
	b.SetStatsSummary(out, "bootuptime", group["bootup-time"])
	assert.Equal(t, 1.67, out["bootuptime"].Mean)
}

type foreignAccumulator struct{}

func (foreignAccumulator) Count() int { return 1 }

func TestBackend_SkipsForeignAndEmpty(t *testing.T) {
	b := New(0)
	out := make(model.GroupSummary)

	b.SetStatsSummary(out, "a", foreignAccumulator{})
	b.SetStatsSummary(out, "b", statistic.NewSamples())

	assert.Empty(t, out)
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4}

	assert.Equal(t, 1.0, statistic.Percentile(sorted, 0))
	assert.Equal(t, 4.0, statistic.Percentile(sorted, 100))
	assert.Equal(t, 2.5, statistic.Percentile(sorted, 50))
	assert.Equal(t, 0.0, statistic.Percentile(nil, 50))
	assert.Equal(t, 7.0, statistic.Percentile([]int64{7}, 90))
}

func TestSamples_SortedDoesNotMutate(t *testing.T) {
	s := statistic.NewSamples()
	for _, v := range []int64{3, 1, 2} {
		s.Add(v)
	}
	sorted := s.Sorted()
	assert.Equal(t, []int64{1, 2, 3}, sorted)

	sorted[0] = 99
	assert.Equal(t, []int64{1, 2, 3}, s.Sorted())
	assert.Equal(t, 2.0, s.Summary().Median)
}

func TestRegistered(t *testing.T) {
	cfg := config.Default()
	cfg.Aggregator.Backend = config.BackendExact

	backend, err := factory.NewBackend(cfg, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, config.BackendExact, backend.Name())
}

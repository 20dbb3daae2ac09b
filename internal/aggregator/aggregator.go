// Package aggregator accumulates audit samples per metric and group and
// produces grouped statistical summaries on demand.
package aggregator

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/model"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Aggregator accumulates one integer sample per catalog metric for every audit
// result it receives, partitioned by group. It is safe for concurrent use.
type Aggregator struct {
	log     logrus.FieldLogger
	backend model.StatsBackend

	mu     sync.RWMutex
	stats  model.StatsTable
	groups map[string]model.StatsTable
}

// New creates an empty Aggregator that delegates accumulation to backend.
func New(backend model.StatsBackend, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		log:     log.WithField("component", "aggregator"),
		backend: backend,
		stats:   make(model.StatsTable),
		groups:  make(map[string]model.StatsTable),
	}
}

// Backend returns the name of the stats backend in use.
func (a *Aggregator) Backend() string {
	return a.backend.Name()
}

type sample struct {
	metric catalog.Metric
	value  int64
}

// AddToAggregate extracts one sample per catalog metric from data and records
// them under group. The call is all-or-nothing: if any metric is missing or
// unparseable nothing is recorded and the group is not created.
func (a *Aggregator) AddToAggregate(data model.AuditResult, group string) error {
	metrics := catalog.All()
	samples := make([]sample, 0, len(metrics))
	for _, m := range metrics {
		v, err := extractSample(data, m)
		if err != nil {
			return err
		}
		samples = append(samples, sample{metric: m, value: v})
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.groups[group]
	if !ok {
		table = make(model.StatsTable)
		a.groups[group] = table
		a.log.WithField("group", group).Debug("Created group")
	}
	for _, s := range samples {
		a.backend.PushGroupStats(a.stats, table, string(s.metric), s.value)
	}
	return nil
}

// Summarize returns one summary per group computed from that group's own
// samples. It returns false when nothing has been aggregated yet.
func (a *Aggregator) Summarize() (*model.SummaryResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.stats) == 0 || len(a.groups) == 0 {
		return nil, false
	}

	result := &model.SummaryResult{
		Groups: make(map[string]model.GroupSummary, len(a.groups)),
	}
	for group, table := range a.groups {
		result.Groups[group] = a.summarizeTable(table)
	}
	return result, true
}

// SummarizeGlobal returns the summary of the samples pooled across every group.
func (a *Aggregator) SummarizeGlobal() (model.GroupSummary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.stats) == 0 {
		return nil, false
	}
	return a.summarizeTable(a.stats), true
}

// summarizeTable must be called with a.mu held.
func (a *Aggregator) summarizeTable(table model.StatsTable) model.GroupSummary {
	out := make(model.GroupSummary, len(table))
	for _, m := range catalog.All() {
		acc, ok := table[string(m)]
		if !ok {
			continue
		}
		a.backend.SetStatsSummary(out, m.Name(), acc)
	}
	return out
}

// Groups returns the known group keys in sorted order.
func (a *Aggregator) Groups() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	groups := make([]string, 0, len(a.groups))
	for g := range a.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Reset discards every accumulated sample and group.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats = make(model.StatsTable)
	a.groups = make(map[string]model.StatsTable)
	a.log.Debug("Aggregate state reset")
}

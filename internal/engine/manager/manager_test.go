package manager

import (
	"PerfSpectra/internal/aggregator"
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/impl/exact"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/snapshot"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func auditMessage(group string, base float64) *model.AuditMessage {
	audits := make(model.AuditResult, catalog.Len())
	for _, m := range catalog.All() {
		audits[string(m)] = model.MetricResult{RawValue: base}
	}
	audits[string(catalog.CriticalRequestChains)] = model.MetricResult{DisplayValue: "2 chains"}
	return &model.AuditMessage{URL: "https://example.com/" + group, Group: group, Audits: audits}
}

type recordingWriter struct {
	mu        sync.Mutex
	interval  time.Duration
	snapshots []model.Snapshot
	closed    bool
}

func (w *recordingWriter) Write(_ context.Context, s model.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, s)
	return nil
}

func (w *recordingWriter) GetInterval() time.Duration { return w.interval }

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) last() (model.Snapshot, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.snapshots) == 0 {
		return model.Snapshot{}, 0
	}
	return w.snapshots[len(w.snapshots)-1], len(w.snapshots)
}

func newTestManager(t *testing.T, cfg config.AggregatorConfig, writers ...model.Writer) *Manager {
	t.Helper()
	m, err := New(aggregator.New(exact.New(0), newTestLogger()), writers, cfg, newTestLogger())
	require.NoError(t, err)
	return m
}

func TestManager_ProcessesAndFlushesOnStop(t *testing.T) {
	writer := &recordingWriter{interval: time.Hour}
	m := newTestManager(t, config.AggregatorConfig{NumWorkers: 3, SizeOfAuditChannel: 16}, writer)

	var (
		mu       sync.Mutex
		failures []model.AuditFailure
	)
	m.OnFailure(func(f model.AuditFailure) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, f)
	})

	m.Start()
	assert.True(t, m.Running())

	for i := 0; i < 10; i++ {
		m.Input() <- auditMessage("home", float64(100*(i+1)))
	}
	bad := auditMessage("home", 1)
	delete(bad.Audits, string(catalog.DOMSize))
	m.Input() <- bad

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())

	snapshot, n := writer.last()
	require.Equal(t, 1, n, "the final snapshot is written exactly once")
	require.NotNil(t, snapshot.Summary)
	assert.Equal(t, "exact", snapshot.Backend)
	assert.Equal(t, uint64(10), snapshot.Ingested)
	assert.Equal(t, uint64(1), snapshot.Failed)
	assert.Equal(t, 10, snapshot.Summary.Groups["home"][catalog.BootupTime.Name()].Count)
	assert.Equal(t, 10, snapshot.Global[catalog.BootupTime.Name()].Count)
	assert.True(t, writer.closed)

	require.Len(t, failures, 1)
	assert.Equal(t, string(catalog.DOMSize), failures[0].Metric)
	assert.Equal(t, "home", failures[0].Group)
	assert.Equal(t, bad.URL, failures[0].URL)
}

func TestManager_PeriodicSnapshots(t *testing.T) {
	writer := &recordingWriter{interval: 20 * time.Millisecond}
	m := newTestManager(t, config.AggregatorConfig{}, writer)
	m.Start()
	defer m.Stop()

	require.NoError(t, m.Ingest(auditMessage("a", 10)))

	require.Eventually(t, func() bool {
		_, n := writer.last()
		return n >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManager_SkipsEmptySnapshots(t *testing.T) {
	writer := &recordingWriter{interval: 10 * time.Millisecond}
	m := newTestManager(t, config.AggregatorConfig{}, writer)
	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	_, n := writer.last()
	assert.Zero(t, n)
	assert.True(t, writer.closed)
}

func TestManager_Ingest(t *testing.T) {
	m := newTestManager(t, config.AggregatorConfig{})

	require.NoError(t, m.Ingest(auditMessage("g", 5)))

	bad := auditMessage("g", 5)
	bad.Audits[string(catalog.SpeedIndexMetric)] = model.MetricResult{RawValue: true}
	err := m.Ingest(bad)
	var parseErr *aggregator.ParseError
	require.ErrorAs(t, err, &parseErr)

	ingested, failed := m.Counts()
	assert.Equal(t, uint64(1), ingested)
	assert.Equal(t, uint64(1), failed)

	snapshot := m.Snapshot()
	require.NotNil(t, snapshot.Summary)
	assert.Equal(t, []string{"g"}, m.Aggregator().Groups())
}

func TestManager_IngestHooks(t *testing.T) {
	m := newTestManager(t, config.AggregatorConfig{})

	var ingested []string
	var failures []model.AuditFailure
	m.OnIngest(func(msg *model.AuditMessage) { ingested = append(ingested, msg.URL) })
	m.OnFailure(func(f model.AuditFailure) { failures = append(failures, f) })

	ok := auditMessage("g", 5)
	ok.URL = "https://example.com/ok"
	require.NoError(t, m.Ingest(ok))

	bad := auditMessage("g", 5)
	bad.URL = "https://example.com/bad"
	delete(bad.Audits, string(catalog.DOMSize))
	require.Error(t, m.Ingest(bad))

	assert.Equal(t, []string{"https://example.com/ok"}, ingested)
	require.Len(t, failures, 1)
	assert.Equal(t, "https://example.com/bad", failures[0].URL)
	assert.Equal(t, string(catalog.DOMSize), failures[0].Metric)
}

func TestManager_Resetter(t *testing.T) {
	m := newTestManager(t, config.AggregatorConfig{Period: "30ms"})
	m.Start()
	defer m.Stop()

	require.NoError(t, m.Ingest(auditMessage("g", 5)))
	require.Eventually(t, func() bool {
		_, ok := m.Aggregator().Summarize()
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNew_InvalidPeriod(t *testing.T) {
	_, err := New(aggregator.New(exact.New(0), newTestLogger()), nil, config.AggregatorConfig{Period: "-1s"}, newTestLogger())
	assert.Error(t, err)
}

func TestNewManager_FromConfig(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Aggregator.Backend = config.BackendSketch
	cfg.Aggregator.Writers = []config.WriterDef{
		{Type: "gob", Enabled: true, SnapshotInterval: "1h", Gob: config.GobConfig{RootPath: root}},
	}
	cfg.Alerter.Enabled = true

	m, err := NewManager(cfg, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, m.alerter, "no smtp host means no alerter")

	m.Start()
	require.NoError(t, m.Ingest(auditMessage("checkout", 250)))
	m.Stop()

	dirs, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	_, summary, err := snapshot.ReadSnapshot(filepath.Join(root, dirs[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Groups["checkout"][catalog.DOMSize.Name()].Count)
}

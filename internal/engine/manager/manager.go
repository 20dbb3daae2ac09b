package manager

import (
	"PerfSpectra/internal/aggregator"
	"PerfSpectra/internal/alerter"
	"PerfSpectra/internal/config"
	_ "PerfSpectra/internal/engine/impl/exact"  // Registers the exact stats backend
	_ "PerfSpectra/internal/engine/impl/sketch" // Registers the sketch stats backend
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/notification"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const writeTimeout = 30 * time.Second

// FailureHandler receives every audit message that could not be aggregated.
type FailureHandler func(failure model.AuditFailure)

// IngestHandler receives every audit message after it has been aggregated.
type IngestHandler func(msg *model.AuditMessage)

// Manager owns the aggregator and orchestrates its worker pool, writers, resetter and alerter.
// It implements the model.Engine interface.
type Manager struct {
	log     logrus.FieldLogger
	agg     *aggregator.Aggregator
	writers []model.Writer
	alerter *alerter.Alerter

	onFailure FailureHandler
	onIngest  IngestHandler

	// Worker pool for concurrent audit processing
	auditChannel chan *model.AuditMessage
	numWorkers   int
	workerWg     sync.WaitGroup

	period        time.Duration // Measurement period, zero disables the resetter
	done          chan struct{}
	snapshotterWg sync.WaitGroup
	resetterWg    sync.WaitGroup

	ingested atomic.Uint64
	failed   atomic.Uint64
	started  atomic.Bool
	stopOnce sync.Once
}

// NewManager builds the backend, writers and alerter described by cfg.
func NewManager(cfg *config.Config, log logrus.FieldLogger) (*Manager, error) {
	backend, err := factory.NewBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	writers, err := factory.NewWriters(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	m, err := New(aggregator.New(backend, log), writers, cfg.Aggregator, log)
	if err != nil {
		for _, w := range writers {
			_ = w.Close()
		}
		return nil, err
	}

	if cfg.Alerter.Enabled {
		if cfg.SMTP.Host == "" {
			m.log.Warn("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		} else {
			m.alerter, err = alerter.NewAlerter(&cfg.Alerter, m.agg, notification.NewEmailNotifier(cfg.SMTP), log)
			if err != nil {
				for _, w := range writers {
					_ = w.Close()
				}
				return nil, fmt.Errorf("failed to create alerter: %w", err)
			}
			m.log.Info("Alerter enabled and initialized")
		}
	}

	return m, nil
}

// New creates a Manager around an existing aggregator and writer set.
func New(agg *aggregator.Aggregator, writers []model.Writer, cfg config.AggregatorConfig, log logrus.FieldLogger) (*Manager, error) {
	period, err := cfg.PeriodDuration()
	if err != nil {
		return nil, err
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = config.DefaultNumWorkers
	}
	size := cfg.SizeOfAuditChannel
	if size <= 0 {
		size = config.DefaultAuditChannelSize
	}

	return &Manager{
		log:          log.WithField("component", "manager"),
		agg:          agg,
		writers:      writers,
		auditChannel: make(chan *model.AuditMessage, size),
		numWorkers:   numWorkers,
		period:       period,
		done:         make(chan struct{}),
	}, nil
}

// AddWriter registers an additional writer. It must be called before Start.
func (m *Manager) AddWriter(w model.Writer) {
	m.writers = append(m.writers, w)
}

// OnFailure sets the handler for audits that fail to aggregate. It must be called before Start.
func (m *Manager) OnFailure(h FailureHandler) {
	m.onFailure = h
}

// OnIngest sets the handler for successfully aggregated audits. It must be called before Start.
func (m *Manager) OnIngest(h IngestHandler) {
	m.onIngest = h
}

// Aggregator returns the aggregator the manager feeds.
func (m *Manager) Aggregator() *aggregator.Aggregator {
	return m.agg
}

// Input returns the channel to which audit messages should be sent for processing.
func (m *Manager) Input() chan<- *model.AuditMessage {
	return m.auditChannel
}

// Running reports whether the manager has been started and not yet stopped.
func (m *Manager) Running() bool {
	return m.started.Load()
}

// Start begins the manager's audit workers, snapshotters, resetter and alerter.
func (m *Manager) Start() {
	for _, writer := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(writer)
		m.log.WithField("interval", writer.GetInterval()).Info("Started snapshotter")
	}

	if m.period > 0 {
		m.resetterWg.Add(1)
		go m.runResetter()
		m.log.WithField("period", m.period).Info("Started resetter")
	}

	if m.alerter != nil {
		m.alerter.Start()
	}

	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	m.started.Store(true)
	m.log.WithFields(logrus.Fields{
		"workers": m.numWorkers,
		"backend": m.agg.Backend(),
	}).Info("Manager started")
}

// Ingest aggregates one audit message synchronously, counting and reporting failures.
func (m *Manager) Ingest(msg *model.AuditMessage) error {
	if err := m.agg.AddToAggregate(msg.Audits, msg.Group); err != nil {
		m.failed.Add(1)
		m.log.WithError(err).WithFields(logrus.Fields{
			"url":    msg.URL,
			"group":  msg.Group,
			"metric": aggregator.MetricOf(err),
		}).Warn("Failed to aggregate audit")

		if m.onFailure != nil {
			m.onFailure(model.AuditFailure{
				URL:    msg.URL,
				Group:  msg.Group,
				Metric: aggregator.MetricOf(err),
				Error:  err.Error(),
				Time:   time.Now().UTC(),
			})
		}
		return err
	}

	m.ingested.Add(1)
	if m.onIngest != nil {
		m.onIngest(msg)
	}
	return nil
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for msg := range m.auditChannel {
		_ = m.Ingest(msg)
	}
}

// Counts returns the number of ingested and failed audits since start.
func (m *Manager) Counts() (ingested, failed uint64) {
	return m.ingested.Load(), m.failed.Load()
}

// Snapshot captures the current summaries.
func (m *Manager) Snapshot() model.Snapshot {
	summary, _ := m.agg.Summarize()
	global, _ := m.agg.SummarizeGlobal()
	ingested, failed := m.Counts()
	return model.Snapshot{
		Time:     time.Now().UTC(),
		Backend:  m.agg.Backend(),
		Summary:  summary,
		Global:   global,
		Ingested: ingested,
		Failed:   failed,
	}
}

// runSnapshotter runs a dedicated snapshot loop for a single writer.
func (m *Manager) runSnapshotter(writer model.Writer) {
	defer m.snapshotterWg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		m.log.WithField("interval", interval).Warn("Invalid interval for writer, snapshotter will not run")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.writeSnapshot(writer)
		case <-m.done:
			m.writeSnapshot(writer)
			return
		}
	}
}

func (m *Manager) writeSnapshot(writer model.Writer) {
	snapshot := m.Snapshot()
	if snapshot.Summary == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := writer.Write(ctx, snapshot); err != nil {
		m.log.WithError(err).WithField("writer", fmt.Sprintf("%T", writer)).Error("Error writing snapshot")
		return
	}
	m.log.WithField("groups", len(snapshot.Summary.Groups)).Debug("Completed snapshot")
}

// runResetter clears the aggregator at the end of every measurement period.
func (m *Manager) runResetter() {
	defer m.resetterWg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.agg.Reset()
			m.log.Info("Reset aggregator for new measurement period")
		case <-m.done:
			return
		}
	}
}

// Stop gracefully shuts down the manager: buffered audits are aggregated, every
// writer receives a final snapshot and is closed. Stop is idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.log.Info("Manager stopping")

		close(m.auditChannel)
		m.workerWg.Wait()

		close(m.done)
		m.snapshotterWg.Wait()
		m.resetterWg.Wait()

		if m.alerter != nil {
			m.alerter.Stop()
		}

		for _, w := range m.writers {
			if err := w.Close(); err != nil {
				m.log.WithError(err).Warn("Failed to close writer")
			}
		}

		m.started.Store(false)
		ingested, failed := m.Counts()
		m.log.WithFields(logrus.Fields{
			"ingested": ingested,
			"failed":   failed,
		}).Info("Manager stopped")
	})
}

var _ model.Engine = (*Manager)(nil)

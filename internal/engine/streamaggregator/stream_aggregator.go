package streamaggregator

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/manager"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/probe"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// StreamAggregator consumes audit messages from NATS and feeds them to a Manager.
// Summaries and failed audits are published back on the bus.
type StreamAggregator struct {
	log     logrus.FieldLogger
	cfg     config.ProbeConfig
	manager *manager.Manager

	nc         *nats.Conn
	subscriber *probe.Subscriber
	publisher  *probe.Publisher

	mu      sync.RWMutex
	stopped bool
}

// NewStreamAggregator creates a new real-time stream aggregator.
func NewStreamAggregator(cfg *config.Config, log logrus.FieldLogger) (*StreamAggregator, error) {
	mgr, err := manager.NewManager(cfg, log)
	if err != nil {
		return nil, err
	}

	return &StreamAggregator{
		log:     log.WithField("component", "stream_aggregator"),
		cfg:     cfg.Probe,
		manager: mgr,
	}, nil
}

// Manager returns the underlying manager.
func (sa *StreamAggregator) Manager() *manager.Manager {
	return sa.manager
}

// Start connects to NATS, starts the underlying manager and begins processing messages.
func (sa *StreamAggregator) Start() error {
	interval, err := time.ParseDuration(sa.cfg.PublishInterval)
	if err != nil {
		return fmt.Errorf("invalid publish_interval: %w", err)
	}

	sa.log.WithField("url", sa.cfg.NATSURL).Info("StreamAggregator starting")
	nc, err := nats.Connect(sa.cfg.NATSURL, nats.Name("perfspectra-engine"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	sa.nc = nc

	sa.publisher = probe.NewPublisherWithConn(nc, sa.cfg, sa.log)
	sa.manager.AddWriter(probe.NewSummaryWriter(sa.publisher, interval))
	sa.manager.OnFailure(func(failure model.AuditFailure) {
		if err := sa.publisher.PublishFailure(failure); err != nil {
			sa.log.WithError(err).Warn("Failed to publish audit failure")
		}
	})
	if sa.cfg.PublishOnIngest {
		sa.manager.OnIngest(sa.publishAfterIngest)
	}
	sa.manager.Start()

	sa.subscriber = probe.NewSubscriberWithConn(nc, sa.cfg.Subject, sa.log)
	if err := sa.subscriber.Start(sa.handleAudit); err != nil {
		sa.Stop()
		return err
	}
	return nil
}

// publishAfterIngest publishes the current summaries tagged with the audit's URL.
func (sa *StreamAggregator) publishAfterIngest(msg *model.AuditMessage) {
	snapshot := sa.manager.Snapshot()
	snapshot.URL = msg.URL
	if err := sa.publisher.PublishSummary(snapshot); err != nil {
		sa.log.WithError(err).WithField("url", msg.URL).Warn("Failed to publish summary after ingest")
	}
}

// handleAudit passes a decoded audit to the manager's channel.
func (sa *StreamAggregator) handleAudit(msg *model.AuditMessage) {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	if sa.stopped {
		return
	}
	sa.manager.Input() <- msg
}

// Stop unsubscribes, lets the manager flush its final snapshots (including the
// last summary publication) and closes the NATS connection.
func (sa *StreamAggregator) Stop() {
	sa.mu.Lock()
	if sa.stopped {
		sa.mu.Unlock()
		return
	}
	sa.stopped = true
	sa.mu.Unlock()

	sa.log.Info("StreamAggregator stopping")
	if sa.subscriber != nil {
		sa.subscriber.Close()
	}

	sa.manager.Stop()

	if sa.nc != nil {
		if err := sa.nc.Flush(); err != nil {
			sa.log.WithError(err).Warn("Failed to flush NATS connection")
		}
		sa.nc.Close()
	}
	sa.log.Info("StreamAggregator stopped")
}

package probe

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
)

// GroupHeader carries the group key of summary and audit messages.
const GroupHeader = "Perf-Group"

// Publisher publishes audits, summaries and failures to NATS subjects.
type Publisher struct {
	log   logrus.FieldLogger
	nc    *nats.Conn
	owned bool
	cfg   config.ProbeConfig
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.ProbeConfig, log logrus.FieldLogger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("perfspectra-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	p := NewPublisherWithConn(nc, cfg, log)
	p.owned = true
	p.log.WithField("url", cfg.NATSURL).Info("Connected to NATS server")
	return p, nil
}

// NewPublisherWithConn publishes over an existing connection. Close leaves the connection open.
func NewPublisherWithConn(nc *nats.Conn, cfg config.ProbeConfig, log logrus.FieldLogger) *Publisher {
	return &Publisher{
		log: log.WithField("component", "publisher"),
		nc:  nc,
		cfg: cfg,
	}
}

// PublishAudit publishes one audit message as JSON on the audit subject.
func (p *Publisher) PublishAudit(msg *model.AuditMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode audit message: %w", err)
	}

	out := nats.NewMsg(p.cfg.Subject)
	out.Header.Set(GroupHeader, msg.Group)
	out.Data = data
	return p.nc.PublishMsg(out)
}

// PublishSummary publishes one message per group of the snapshot on the summary subject,
// carrying the snapshot's URL when it was triggered by an audit.
// Snapshots without a summary publish nothing.
func (p *Publisher) PublishSummary(snapshot model.Snapshot) error {
	if snapshot.Summary == nil {
		return nil
	}

	groups := make([]string, 0, len(snapshot.Summary.Groups))
	for g := range snapshot.Summary.Groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		payload, err := SummaryPayload(group, snapshot.URL, snapshot.Summary.Groups[group], snapshot.Time)
		if err != nil {
			return err
		}
		data, err := protojson.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode summary of group '%s': %w", group, err)
		}

		out := nats.NewMsg(p.cfg.SummarySubject)
		out.Header.Set(GroupHeader, group)
		out.Data = data
		if err := p.nc.PublishMsg(out); err != nil {
			return fmt.Errorf("failed to publish summary of group '%s': %w", group, err)
		}
	}

	p.log.WithField("groups", len(groups)).Debug("Published summaries")
	return nil
}

// PublishFailure publishes an audit that could not be aggregated on the error subject.
func (p *Publisher) PublishFailure(failure model.AuditFailure) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to encode audit failure: %w", err)
	}

	out := nats.NewMsg(p.cfg.ErrorSubject)
	out.Header.Set(GroupHeader, failure.Group)
	out.Data = data
	return p.nc.PublishMsg(out)
}

// Flush waits until the server has processed every published message.
func (p *Publisher) Flush() error {
	return p.nc.Flush()
}

// Close drains and closes the NATS connection if the publisher opened it.
func (p *Publisher) Close() {
	if p.nc == nil || !p.owned {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.log.WithError(err).Warn("Failed to drain NATS connection")
		return
	}
	p.log.Info("NATS connection drained and closed")
}

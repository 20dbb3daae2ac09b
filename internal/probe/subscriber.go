package probe

import (
	"PerfSpectra/internal/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// AuditHandler processes a received audit message.
type AuditHandler func(msg *model.AuditMessage)

// Subscriber subscribes to the audit subject and decodes JSON audit messages.
type Subscriber struct {
	log     logrus.FieldLogger
	nc      *nats.Conn
	owned   bool
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to the NATS server at url.
func NewSubscriber(url, subject string, log logrus.FieldLogger) (*Subscriber, error) {
	nc, err := nats.Connect(url, nats.Name("perfspectra-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	s := NewSubscriberWithConn(nc, subject, log)
	s.owned = true
	s.log.WithField("url", url).Info("Connected to NATS server")
	return s, nil
}

// NewSubscriberWithConn subscribes over an existing connection. Close leaves the connection open.
func NewSubscriberWithConn(nc *nats.Conn, subject string, log logrus.FieldLogger) *Subscriber {
	return &Subscriber{
		log:     log.WithField("component", "subscriber"),
		nc:      nc,
		subject: subject,
	}
}

// Start subscribes to the subject and hands every decodable message to handler.
// Messages that are not valid audit JSON are logged and dropped.
func (s *Subscriber) Start(handler AuditHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		audit, err := DecodeAudit(msg)
		if err != nil {
			s.log.WithError(err).WithField("subject", msg.Subject).Warn("Dropping undecodable audit message")
			return
		}
		handler(audit)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", s.subject, err)
	}
	s.sub = sub
	s.log.WithField("subject", s.subject).Info("Subscribed, waiting for audits")
	return nil
}

// DecodeAudit decodes a JSON audit message. A missing group falls back to the
// Perf-Group header.
func DecodeAudit(msg *nats.Msg) (*model.AuditMessage, error) {
	var audit model.AuditMessage
	if err := json.Unmarshal(msg.Data, &audit); err != nil {
		return nil, fmt.Errorf("failed to decode audit message: %w", err)
	}
	if audit.Group == "" && msg.Header != nil {
		audit.Group = msg.Header.Get(GroupHeader)
	}
	audit.ReceivedAt = time.Now()
	return &audit, nil
}

// Close unsubscribes and closes the NATS connection if the subscriber opened it.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.WithError(err).Warn("Failed to unsubscribe")
		}
	}
	if s.nc != nil && s.owned {
		s.nc.Close()
		s.log.Info("NATS connection closed")
	}
}

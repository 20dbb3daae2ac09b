package streamaggregator

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/probe"
	"encoding/json"
	"io"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
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
	audits[string(catalog.CriticalRequestChains)] = model.MetricResult{DisplayValue: "5 chains"}
	return &model.AuditMessage{URL: "https://example.com/" + group, Group: group, Audits: audits}
}

func TestStreamAggregator_EndToEnd(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	cfg := config.Default()
	cfg.Probe.NATSURL = s.ClientURL()
	cfg.Probe.PublishInterval = "1h"

	nc, err := nats.Connect(cfg.Probe.NATSURL)
	require.NoError(t, err)
	defer nc.Close()
	summaries, err := nc.SubscribeSync(cfg.Probe.SummarySubject)
	require.NoError(t, err)
	failures, err := nc.SubscribeSync(cfg.Probe.ErrorSubject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	sa, err := NewStreamAggregator(cfg, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, sa.Start())

	pub := probe.NewPublisherWithConn(nc, cfg.Probe, newTestLogger())
	require.NoError(t, pub.PublishAudit(auditMessage("home", 100)))
	require.NoError(t, pub.PublishAudit(auditMessage("home", 300)))
	bad := auditMessage("home", 1)
	delete(bad.Audits, string(catalog.TimeToFirstByte))
	require.NoError(t, pub.PublishAudit(bad))
	require.NoError(t, pub.Flush())

	require.Eventually(t, func() bool {
		ingested, failed := sa.Manager().Counts()
		return ingested == 2 && failed == 1
	}, 5*time.Second, 10*time.Millisecond)

	msg, err := failures.NextMsg(5 * time.Second)
	require.NoError(t, err)
	var failure model.AuditFailure
	require.NoError(t, json.Unmarshal(msg.Data, &failure))
	assert.Equal(t, string(catalog.TimeToFirstByte), failure.Metric)
	assert.Equal(t, bad.URL, failure.URL)

	sa.Stop()
	sa.Stop()

	msg, err = summaries.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "home", msg.Header.Get(probe.GroupHeader))

	summary, err := probe.DecodeSummary(msg.Data)
	require.NoError(t, err)
	stats := summary.Stats[catalog.DOMSize.Name()]
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 200.0, stats.Mean)
	assert.Equal(t, 5.0, summary.Stats[catalog.CriticalRequestChains.Name()].Max)
}

func TestStreamAggregator_PublishOnIngest(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	cfg := config.Default()
	cfg.Probe.NATSURL = s.ClientURL()
	cfg.Probe.PublishInterval = "1h"
	cfg.Probe.PublishOnIngest = true

	nc, err := nats.Connect(cfg.Probe.NATSURL)
	require.NoError(t, err)
	defer nc.Close()
	summaries, err := nc.SubscribeSync(cfg.Probe.SummarySubject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	sa, err := NewStreamAggregator(cfg, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, sa.Start())
	defer sa.Stop()

	pub := probe.NewPublisherWithConn(nc, cfg.Probe, newTestLogger())
	next := func() *probe.SummaryMessage {
		msg, err := summaries.NextMsg(5 * time.Second)
		require.NoError(t, err)
		decoded, err := probe.DecodeSummary(msg.Data)
		require.NoError(t, err)
		return decoded
	}

	home := auditMessage("home", 100)
	require.NoError(t, pub.PublishAudit(home))
	require.NoError(t, pub.Flush())

	first := next()
	assert.Equal(t, "home", first.Group)
	assert.Equal(t, home.URL, first.URL)
	assert.Equal(t, 1, first.Stats[catalog.DOMSize.Name()].Count)

	// Every group is republished after each audit, tagged with that audit's URL.
	cart := auditMessage("cart", 300)
	require.NoError(t, pub.PublishAudit(cart))
	require.NoError(t, pub.Flush())

	second, third := next(), next()
	assert.Equal(t, "cart", second.Group)
	assert.Equal(t, "home", third.Group)
	assert.Equal(t, cart.URL, second.URL)
	assert.Equal(t, cart.URL, third.URL)

	bad := auditMessage("home", 1)
	delete(bad.Audits, string(catalog.DOMSize))
	require.NoError(t, pub.PublishAudit(bad))
	require.NoError(t, pub.Flush())

	_, err = summaries.NextMsg(200 * time.Millisecond)
	assert.ErrorIs(t, err, nats.ErrTimeout, "failed audits publish no summary")
}

func TestStreamAggregator_ConnectFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Probe.NATSURL = "nats://127.0.0.1:1"

	sa, err := NewStreamAggregator(cfg, newTestLogger())
	require.NoError(t, err)
	assert.Error(t, sa.Start())
}

package alerter

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SummarySource provides the latest per-group summaries.
type SummarySource interface {
	Summarize() (*model.SummaryResult, bool)
}

// Alert is a rule that matched one group's statistics.
type Alert struct {
	Rule  config.AlerterRule
	Group string
	Value float64

	rule int
}

type alertKey struct {
	rule  int
	group string
}

func (a Alert) key() alertKey {
	return alertKey{rule: a.rule, group: a.Group}
}

func (a Alert) String() string {
	return fmt.Sprintf("[%s] group '%s': %s %s = %g %s %g",
		a.Rule.Name, a.Group, a.Rule.Metric, a.Rule.Stat, a.Value, a.Rule.Operator, a.Rule.Threshold)
}

// Alerter periodically evaluates the latest summaries against threshold rules
// and sends one consolidated notification per check. An alert is only notified
// when it starts firing; it is notified again after it has cleared and recurred.
type Alerter struct {
	log           logrus.FieldLogger
	source        SummarySource
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	mu     sync.Mutex
	firing map[alertKey]struct{}
}

// NewAlerter validates the rules and creates an Alerter. Rule metrics may be given
// as audit identifiers or normalized names.
func NewAlerter(cfg *config.AlerterConfig, source SummarySource, notifier model.Notifier, log logrus.FieldLogger) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("check_interval for alerter must be positive")
	}

	rules := make([]config.AlerterRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		m, ok := catalog.Lookup(rule.Metric)
		if !ok {
			return nil, fmt.Errorf("rule '%s': unknown metric '%s'", rule.Name, rule.Metric)
		}
		rule.Metric = m.Name()
		if _, ok := (model.Statistics{}).Field(rule.Stat); !ok {
			return nil, fmt.Errorf("rule '%s': unknown stat '%s'", rule.Name, rule.Stat)
		}
		if _, err := check(0, rule.Operator, 0); err != nil {
			return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
		}
		rules = append(rules, rule)
	}

	return &Alerter{
		log:           log.WithField("component", "alerter"),
		source:        source,
		rules:         rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
		firing:        make(map[alertKey]struct{}),
	}, nil
}

// Start launches the periodic evaluation loop.
func (a *Alerter) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ticker := time.NewTicker(a.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.Check(context.Background())
			case <-a.stopChan:
				return
			}
		}
	}()
	a.log.WithField("rules", len(a.rules)).Info("Alerter started")
}

// Stop ends the evaluation loop and runs a final check.
func (a *Alerter) Stop() {
	a.stopOnce.Do(func() {
		a.log.Info("Stopping alerter")
		close(a.stopChan)
		a.wg.Wait()
		a.Check(context.Background())
	})
}

// Evaluate returns every rule that matches the latest summary, ordered by rule then group.
func (a *Alerter) Evaluate() []Alert {
	summary, ok := a.source.Summarize()
	if !ok {
		return nil
	}

	groups := make([]string, 0, len(summary.Groups))
	for g := range summary.Groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var alerts []Alert
	for i, rule := range a.rules {
		for _, group := range groups {
			if rule.Group != "" && rule.Group != group {
				continue
			}
			stats, ok := summary.Groups[group][rule.Metric]
			if !ok {
				continue
			}
			value, _ := stats.Field(rule.Stat)
			if hit, _ := check(value, rule.Operator, rule.Threshold); hit {
				alerts = append(alerts, Alert{Rule: rule, Group: group, Value: value, rule: i})
			}
		}
	}
	return alerts
}

// Check evaluates the rules and sends a notification for the alerts that were
// not already firing at the previous check.
func (a *Alerter) Check(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alerts := a.Evaluate()
	current := make(map[alertKey]struct{}, len(alerts))
	var fresh []Alert
	for _, al := range alerts {
		current[al.key()] = struct{}{}
		if _, ok := a.firing[al.key()]; !ok {
			fresh = append(fresh, al)
		}
	}

	// Cleared alerts drop out here and will be notified again if they recur.
	a.firing = current
	if len(fresh) == 0 {
		return
	}

	a.log.WithFields(logrus.Fields{
		"alerts": len(fresh),
		"firing": len(alerts),
	}).Info("Alert rules triggered")
	if a.notifier == nil {
		return
	}

	subject := fmt.Sprintf("PerfSpectra Alert Summary (%d Triggered)", len(fresh))
	if err := a.notifier.Send(ctx, subject, FormatHTML(fresh)); err != nil {
		a.log.WithError(err).Error("Failed to send alert notification")
		// Retry the unsent alerts at the next check.
		for _, al := range fresh {
			delete(a.firing, al.key())
		}
		return
	}
	a.log.Info("Alert notification sent")
}

// FormatHTML renders triggered alerts as the body of a notification email.
func FormatHTML(alerts []Alert) string {
	var b strings.Builder
	b.WriteString("<h1>PerfSpectra Alert Summary</h1>")
	b.WriteString("<p>The following alerts were triggered during the last check:</p>")
	b.WriteString("<table><tr><th>rule</th><th>group</th><th>metric</th><th>stat</th><th>value</th><th>threshold</th></tr>")
	for _, al := range alerts {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%g</td><td>%s %g</td></tr>",
			html.EscapeString(al.Rule.Name),
			html.EscapeString(al.Group),
			html.EscapeString(al.Rule.Metric),
			html.EscapeString(al.Rule.Stat),
			al.Value,
			html.EscapeString(al.Rule.Operator),
			al.Rule.Threshold,
		)
	}
	b.WriteString("</table>")
	return b.String()
}

// check compares value against threshold with the given operator.
func check(value float64, operator string, threshold float64) (bool, error) {
	switch operator {
	case ">":
		return value > threshold, nil
	case ">=":
		return value >= threshold, nil
	case "<":
		return value < threshold, nil
	case "<=":
		return value <= threshold, nil
	case "==":
		return value == threshold, nil
	case "!=":
		return value != threshold, nil
	}
	return false, fmt.Errorf("unknown operator '%s'", operator)
}

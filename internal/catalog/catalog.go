// Package catalog lists the audit metrics the aggregator understands.
package catalog

import "strings"

// Metric is the identifier of a single audit, as it appears in an audit result.
type Metric string

// Rule tells the aggregator which field of an audit carries the sample.
type Rule int

const (
	// RuleRawValue reads the integer part of the audit's raw value.
	RuleRawValue Rule = iota
	// RuleDisplayValue parses the leading integer of the audit's display value.
	RuleDisplayValue
)

func (r Rule) String() string {
	switch r {
	case RuleRawValue:
		return "rawValue"
	case RuleDisplayValue:
		return "displayValue"
	default:
		return "unknown"
	}
}

const (
	BootupTime               Metric = "bootup-time"
	TotalByteWeight          Metric = "total-byte-weight"
	ConsistentlyInteractive  Metric = "consistently-interactive"
	CriticalRequestChains    Metric = "critical-request-chains"
	DOMSize                  Metric = "dom-size"
	LinkBlockingFirstPaint   Metric = "link-blocking-first-paint"
	ScriptBlockingFirstPaint Metric = "script-blocking-first-paint"
	EstimatedInputLatency    Metric = "estimated-input-latency"
	FirstInteractive         Metric = "first-interactive"
	FirstMeaningfulPaint     Metric = "first-meaningful-paint"
	MainthreadWorkBreakdown  Metric = "mainthread-work-breakdown"
	SpeedIndexMetric         Metric = "speed-index-metric"
	TimeToFirstByte          Metric = "time-to-first-byte"
)

// separator is stripped from metric identifiers to build summary keys.
const separator = "-"

var metrics = []Metric{
	BootupTime,
	// byte efficiency
	TotalByteWeight,
	ConsistentlyInteractive,
	CriticalRequestChains,
	// dobetterweb
	DOMSize,
	LinkBlockingFirstPaint,
	ScriptBlockingFirstPaint,
	EstimatedInputLatency,
	FirstInteractive,
	FirstMeaningfulPaint,
	MainthreadWorkBreakdown,
	SpeedIndexMetric,
	TimeToFirstByte,
}

// All returns the catalog in its fixed order. The returned slice is a copy.
func All() []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return out
}

// Len returns the number of metrics in the catalog.
func Len() int {
	return len(metrics)
}

// Contains reports whether m is part of the catalog.
func Contains(m Metric) bool {
	for _, known := range metrics {
		if known == m {
			return true
		}
	}
	return false
}

// RuleFor returns the extraction rule for m.
func RuleFor(m Metric) Rule {
	if m == CriticalRequestChains {
		return RuleDisplayValue
	}
	return RuleRawValue
}

// Normalize strips separators from a metric identifier, e.g. "dom-size" -> "domsize".
func Normalize(name string) string {
	return strings.ReplaceAll(name, separator, "")
}

// Name returns the normalized summary key of m.
func (m Metric) Name() string {
	return Normalize(string(m))
}

// Names returns the normalized summary keys in catalog order.
func Names() []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name()
	}
	return names
}

// Lookup resolves a metric from either its identifier or its normalized name.
func Lookup(name string) (Metric, bool) {
	for _, m := range metrics {
		if string(m) == name || m.Name() == name {
			return m, true
		}
	}
	return "", false
}

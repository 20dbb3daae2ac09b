package model

import "time"

// MetricResult is one audit entry of an audit result.
// RawValue keeps whatever JSON type the audit engine emitted (number, string, bool).
type MetricResult struct {
	RawValue     any    `json:"rawValue"`
	DisplayValue string `json:"displayValue,omitempty"`
}

// AuditResult maps an audit identifier to its result for one audited page.
type AuditResult map[string]MetricResult

// AuditMessage is the unit of work flowing from the audit engine into the aggregation engine.
type AuditMessage struct {
	URL        string      `json:"url"`
	Group      string      `json:"group"`
	Audits     AuditResult `json:"audits"`
	ReceivedAt time.Time   `json:"-"`
}

// AuditFailure describes an audit message that could not be aggregated.
type AuditFailure struct {
	URL    string    `json:"url"`
	Group  string    `json:"group"`
	Metric string    `json:"metric,omitempty"`
	Error  string    `json:"error"`
	Time   time.Time `json:"time"`
}

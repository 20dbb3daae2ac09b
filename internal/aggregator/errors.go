package aggregator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLeadingInteger is returned when a value does not start with an integer.
	ErrNoLeadingInteger = errors.New("no leading integer")
	// ErrUnsupportedValue is returned when a raw value has a type that cannot hold a sample.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// MissingMetricError reports an audit result without an entry for a catalog metric.
type MissingMetricError struct {
	Metric string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("audit result is missing metric %q", e.Metric)
}

// ParseError reports a metric whose value cannot be reduced to an integer sample.
type ParseError struct {
	Metric string
	Value  any
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metric %q: cannot parse %v: %v", e.Metric, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MetricOf returns the metric an ingestion error refers to, or "" for other errors.
func MetricOf(err error) string {
	var missing *MissingMetricError
	if errors.As(err, &missing) {
		return missing.Metric
	}
	var parse *ParseError
	if errors.As(err, &parse) {
		return parse.Metric
	}
	return ""
}

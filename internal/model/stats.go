package model

import "math"

// Accumulator holds the samples of one metric. Its representation belongs to the
// StatsBackend that created it.
type Accumulator interface {
	Count() int
}

// StatsTable maps a metric identifier to its accumulator.
type StatsTable map[string]Accumulator

// Statistics is the summary of one metric's samples.
type Statistics struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	P10    float64 `json:"p10"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

// Field returns the named statistic ("min", "p10", "median", "mean", "p90", "p99", "max" or "count").
func (s Statistics) Field(name string) (float64, bool) {
	switch name {
	case "count":
		return float64(s.Count), true
	case "min":
		return s.Min, true
	case "p10":
		return s.P10, true
	case "median":
		return s.Median, true
	case "mean":
		return s.Mean, true
	case "p90":
		return s.P90, true
	case "p99":
		return s.P99, true
	case "max":
		return s.Max, true
	}
	return 0, false
}

// Rounded returns a copy of s with every value rounded to decimals places.
func (s Statistics) Rounded(decimals int) Statistics {
	pow := math.Pow(10, float64(decimals))
	round := func(v float64) float64 {
		return math.Round(v*pow) / pow
	}
	return Statistics{
		Count:  s.Count,
		Min:    round(s.Min),
		P10:    round(s.P10),
		Median: round(s.Median),
		Mean:   round(s.Mean),
		P90:    round(s.P90),
		P99:    round(s.P99),
		Max:    round(s.Max),
	}
}

// GroupSummary maps a normalized metric name to its statistics.
type GroupSummary map[string]Statistics

// SummaryResult holds one GroupSummary per group key.
type SummaryResult struct {
	Groups map[string]GroupSummary `json:"groups"`
}

// StatsBackend performs the numeric accumulation and summarization for the aggregator.
type StatsBackend interface {
	// PushGroupStats records one sample of metric in both the global and the group table.
	PushGroupStats(global, group StatsTable, metric string, value int64)

	// SetStatsSummary computes the summary of acc and stores it in out under name.
	SetStatsSummary(out GroupSummary, name string, acc Accumulator)

	// Name identifies the backend in logs and snapshots.
	Name() string
}

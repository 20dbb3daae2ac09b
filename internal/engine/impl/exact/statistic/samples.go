package statistic

import (
	"PerfSpectra/internal/model"
	"math"
	"sort"
)

// Samples keeps every sample recorded for one metric.
// It implements the model.Accumulator interface.
type Samples struct {
	values []int64
	sum    float64
}

// NewSamples creates an empty sample pool.
func NewSamples() *Samples {
	return &Samples{}
}

// Add records one sample.
func (s *Samples) Add(v int64) {
	s.values = append(s.values, v)
	s.sum += float64(v)
}

// Count returns the number of recorded samples.
func (s *Samples) Count() int {
	return len(s.values)
}

// Sorted returns a sorted copy of the samples. The pool itself is left untouched
// so summaries can be computed under a read lock.
func (s *Samples) Sorted() []int64 {
	sorted := make([]int64, len(s.values))
	copy(sorted, s.values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// Percentile returns the p-th percentile (0..100) of sorted samples,
// interpolating linearly between the two closest ranks.
func Percentile(sorted []int64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac
}

// Summary computes the statistics of the pool.
func (s *Samples) Summary() model.Statistics {
	if len(s.values) == 0 {
		return model.Statistics{}
	}
	sorted := s.Sorted()
	return model.Statistics{
		Count:  len(sorted),
		Min:    float64(sorted[0]),
		P10:    Percentile(sorted, 10),
		Median: Percentile(sorted, 50),
		Mean:   s.sum / float64(len(sorted)),
		P90:    Percentile(sorted, 90),
		P99:    Percentile(sorted, 99),
		Max:    float64(sorted[len(sorted)-1]),
	}
}

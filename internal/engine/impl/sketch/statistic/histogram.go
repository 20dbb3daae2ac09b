package statistic

import (
	"math"
	"sort"
)

const defaultAlpha = 0.01

// Histogram is a log-bucketed quantile sketch. Every returned quantile lies
// within a relative distance alpha of the sample at the requested rank.
// Count, sum, min and max are tracked exactly.
type Histogram struct {
	alpha    float64
	gamma    float64
	logGamma float64

	positive map[int]uint64
	negative map[int]uint64
	zero     uint64

	count uint64
	sum   float64
	min   int64
	max   int64
}

// NewHistogram creates an empty histogram with relative accuracy alpha.
func NewHistogram(alpha float64) *Histogram {
	if alpha <= 0 || alpha >= 1 {
		alpha = defaultAlpha
	}
	gamma := (1 + alpha) / (1 - alpha)
	return &Histogram{
		alpha:    alpha,
		gamma:    gamma,
		logGamma: math.Log(gamma),
		positive: make(map[int]uint64),
		negative: make(map[int]uint64),
	}
}

// Insert records one sample.
func (h *Histogram) Insert(v int64) {
	switch {
	case v > 0:
		h.positive[h.index(float64(v))]++
	case v < 0:
		h.negative[h.index(-float64(v))]++
	default:
		h.zero++
	}

	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += float64(v)
}

// Count returns the number of recorded samples.
func (h *Histogram) Count() int {
	return int(h.count)
}

// Min returns the smallest recorded sample.
func (h *Histogram) Min() int64 { return h.min }

// Max returns the largest recorded sample.
func (h *Histogram) Max() int64 { return h.max }

// Mean returns the exact mean of the recorded samples.
func (h *Histogram) Mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Buckets returns the number of non-empty buckets.
func (h *Histogram) Buckets() int {
	n := len(h.positive) + len(h.negative)
	if h.zero > 0 {
		n++
	}
	return n
}

// Quantile returns an estimate of the q-quantile (0..1).
func (h *Histogram) Quantile(q float64) float64 {
	if h.count == 0 {
		return 0
	}
	if q <= 0 {
		return float64(h.min)
	}
	if q >= 1 {
		return float64(h.max)
	}

	target := uint64(math.Floor(q * float64(h.count-1)))
	var cum uint64

	// Most negative values sit in the highest negative buckets.
	for _, idx := range sortedKeys(h.negative, true) {
		cum += h.negative[idx]
		if cum > target {
			return h.clamp(-h.value(idx))
		}
	}
	cum += h.zero
	if cum > target {
		return 0
	}
	for _, idx := range sortedKeys(h.positive, false) {
		cum += h.positive[idx]
		if cum > target {
			return h.clamp(h.value(idx))
		}
	}
	return float64(h.max)
}

func (h *Histogram) index(v float64) int {
	return int(math.Ceil(math.Log(v) / h.logGamma))
}

// value is the representative of bucket idx, at equal relative distance from both bounds.
func (h *Histogram) value(idx int) float64 {
	return 2 * math.Pow(h.gamma, float64(idx)) / (h.gamma + 1)
}

func (h *Histogram) clamp(v float64) float64 {
	return math.Max(float64(h.min), math.Min(float64(h.max), v))
}

func sortedKeys(m map[int]uint64, desc bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	if desc {
		sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	} else {
		sort.Ints(keys)
	}
	return keys
}

var _ Sketch = (*Histogram)(nil)

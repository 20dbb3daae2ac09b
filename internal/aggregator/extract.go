package aggregator

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/model"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseLeadingInt parses the integer at the start of s, ignoring whatever follows it.
// Leading whitespace and a sign are accepted; "42ms" yields 42 and "7 chains" yields 7.
// A string without leading digits is an error, never zero.
func ParseLeadingInt(s string) (int64, error) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, ErrNoLeadingInteger
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoLeadingInteger, err)
	}
	return n, nil
}

// truncate converts a measured value to its integer part.
func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrUnsupportedValue, f)
	}
	return int64(t), nil
}

// rawSample reads the integer part of a raw value as decoded from JSON.
func rawSample(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		return truncate(val)
	case float32:
		return truncate(float64(val))
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return truncate(f)
	case string:
		return ParseLeadingInt(val)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// extractSample applies the catalog's extraction rule for m to data.
func extractSample(data model.AuditResult, m catalog.Metric) (int64, error) {
	result, ok := data[string(m)]
	if !ok {
		return 0, &MissingMetricError{Metric: string(m)}
	}

	var (
		sample int64
		err    error
		value  any
	)
	switch catalog.RuleFor(m) {
	case catalog.RuleDisplayValue:
		value = result.DisplayValue
		sample, err = ParseLeadingInt(result.DisplayValue)
	default:
		value = result.RawValue
		sample, err = rawSample(result.RawValue)
	}
	if err != nil {
		return 0, &ParseError{Metric: string(m), Value: value, Err: err}
	}
	return sample, nil
}

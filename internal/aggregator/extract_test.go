package aggregator

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/model"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "42ms", want: 42},
		{input: "7 chains", want: 7},
		{input: "  12", want: 12},
		{input: "-5 ms", want: -5},
		{input: "+8", want: 8},
		{input: "3.9", want: 3},
		{input: "1,234", want: 1},
		{input: "", wantErr: true},
		{input: "ms42", wantErr: true},
		{input: "-", wantErr: true},
		{input: "chains: 7", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLeadingInt(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoLeadingInteger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawSample(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr error
	}{
		{name: "float", input: 123.0, want: 123},
		{name: "fraction", input: 123.99, want: 123},
		{name: "negative fraction", input: -2.5, want: -2},
		{name: "int", input: 17, want: 17},
		{name: "json number", input: json.Number("250.4"), want: 250},
		{name: "json number exponent", input: json.Number("1e3"), want: 1000},
		{name: "json number negative exponent", input: json.Number("2.5e-1"), want: 0},
		{name: "json number out of range", input: json.Number("1e400"), wantErr: ErrUnsupportedValue},
		{name: "json number malformed", input: json.Number("12ms"), wantErr: ErrUnsupportedValue},
		{name: "string", input: "1500 ms", want: 1500},
		{name: "nan", input: math.NaN(), wantErr: ErrUnsupportedValue},
		{name: "inf", input: math.Inf(1), wantErr: ErrUnsupportedValue},
		{name: "too large", input: 1e300, wantErr: ErrUnsupportedValue},
		{name: "bool", input: false, wantErr: ErrUnsupportedValue},
		{name: "nil", input: nil, wantErr: ErrUnsupportedValue},
		{name: "object", input: map[string]any{"v": 1}, wantErr: ErrUnsupportedValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rawSample(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawSample_NumberMatchesFloat(t *testing.T) {
	for _, raw := range []string{"1e3", "1450.9", "-3.2", "12345678"} {
		t.Run(raw, func(t *testing.T) {
			var f float64
			require.NoError(t, json.Unmarshal([]byte(raw), &f))
			fromFloat, err := rawSample(f)
			require.NoError(t, err)

			fromNumber, err := rawSample(json.Number(raw))
			require.NoError(t, err)
			assert.Equal(t, fromFloat, fromNumber)
		})
	}
}

func TestExtractSample_DecodedJSON(t *testing.T) {
	raw := []byte(`{
		"dom-size": {"rawValue": 1450.0, "displayValue": "1,450 nodes"},
		"critical-request-chains": {"rawValue": false, "displayValue": "12 chains found"}
	}`)
	var data model.AuditResult
	require.NoError(t, json.Unmarshal(raw, &data))

	v, err := extractSample(data, catalog.DOMSize)
	require.NoError(t, err)
	assert.Equal(t, int64(1450), v)

	v, err = extractSample(data, catalog.CriticalRequestChains)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = extractSample(data, catalog.BootupTime)
	var missing *MissingMetricError
	assert.ErrorAs(t, err, &missing)
}

func TestErrorMessages(t *testing.T) {
	missing := &MissingMetricError{Metric: "dom-size"}
	assert.Contains(t, missing.Error(), "dom-size")

	parse := &ParseError{Metric: "bootup-time", Value: "n/a", Err: ErrNoLeadingInteger}
	assert.Contains(t, parse.Error(), "bootup-time")
	assert.Contains(t, parse.Error(), "n/a")
	assert.ErrorIs(t, parse, ErrNoLeadingInteger)

	assert.Equal(t, "", MetricOf(assert.AnError))
}

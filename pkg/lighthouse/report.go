package lighthouse

import (
	"PerfSpectra/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoAudits is returned for JSON documents without an audits object.
var ErrNoAudits = errors.New("report has no audits")

// audit is the subset of a Lighthouse audit entry the aggregator reads.
// Newer Lighthouse versions report numericValue instead of rawValue.
type audit struct {
	RawValue     any      `json:"rawValue"`
	NumericValue *float64 `json:"numericValue"`
	DisplayValue any      `json:"displayValue"`
}

// Report is a decoded Lighthouse JSON report.
type Report struct {
	RequestedURL      string
	FinalURL          string
	LighthouseVersion string
	FetchTime         time.Time
	Audits            model.AuditResult
}

type rawReport struct {
	RequestedURL      string           `json:"requestedUrl"`
	FinalURL          string           `json:"finalUrl"`
	LighthouseVersion string           `json:"lighthouseVersion"`
	FetchTime         string           `json:"fetchTime"`
	GeneratedTime     string           `json:"generatedTime"`
	Audits            map[string]audit `json:"audits"`
}

// Decode reads one Lighthouse report.
func Decode(r io.Reader) (*Report, error) {
	var raw rawReport
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode lighthouse report: %w", err)
	}
	if len(raw.Audits) == 0 {
		return nil, ErrNoAudits
	}

	report := &Report{
		RequestedURL:      raw.RequestedURL,
		FinalURL:          raw.FinalURL,
		LighthouseVersion: raw.LighthouseVersion,
		Audits:            make(model.AuditResult, len(raw.Audits)),
	}
	for _, ts := range []string{raw.FetchTime, raw.GeneratedTime} {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			report.FetchTime = t
			break
		}
	}

	for id, a := range raw.Audits {
		result := model.MetricResult{RawValue: a.RawValue}
		if result.RawValue == nil && a.NumericValue != nil {
			result.RawValue = *a.NumericValue
		}
		switch dv := a.DisplayValue.(type) {
		case string:
			result.DisplayValue = dv
		case float64:
			result.DisplayValue = strconv.FormatFloat(dv, 'f', -1, 64)
		case []any:
			result.DisplayValue = formatDisplay(dv)
		}
		report.Audits[id] = result
	}

	return report, nil
}

// formatDisplay expands the [format, args...] display values of older reports.
func formatDisplay(parts []any) string {
	if len(parts) == 0 {
		return ""
	}
	format, ok := parts[0].(string)
	if !ok {
		return fmt.Sprint(parts...)
	}

	var b strings.Builder
	args := parts[1:]
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) && len(args) > 0 {
			b.WriteString(fmt.Sprint(args[0]))
			args = args[1:]
			i++
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// ReadFile decodes the Lighthouse report stored at path.
func ReadFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	report, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}

// URL returns the final URL of the audited page, or the requested one.
func (r *Report) URL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.RequestedURL
}

// Message converts the report into an audit message for group.
func (r *Report) Message(group string) *model.AuditMessage {
	return &model.AuditMessage{
		URL:    r.URL(),
		Group:  group,
		Audits: r.Audits,
	}
}

// ReadReports decodes every file in paths and sends one audit message per report
// to out, closing it when done. Unreadable files are logged and skipped.
func ReadReports(paths []string, group string, out chan<- *model.AuditMessage, log logrus.FieldLogger) {
	defer close(out)
	for _, path := range paths {
		report, err := ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("Skipping unreadable report")
			continue
		}
		out <- report.Message(group)
	}
}

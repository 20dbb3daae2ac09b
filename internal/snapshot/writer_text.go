package snapshot

import (
	"PerfSpectra/internal/model"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"
)

var tableHeaders = []string{"group", "metric", "count", "min", "p10", "median", "mean", "p90", "p99", "max"}

// TextWriter renders each snapshot as a human-readable table in summary.txt.
type TextWriter struct {
	log      logrus.FieldLogger
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer rooted at rootPath.
func NewTextWriter(rootPath string, interval time.Duration, log logrus.FieldLogger) model.Writer {
	return &TextWriter{
		log:      log.WithField("writer", TypeText),
		rootPath: rootPath,
		interval: interval,
	}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *TextWriter) Write(_ context.Context, snapshot model.Snapshot) error {
	rows := Rows(snapshot)
	if len(rows) == 0 {
		return nil
	}

	snapshotDir := filepath.Join(w.rootPath, snapshot.Time.Format(TimestampLayout))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "backend: %s\ningested: %d\nfailed: %d\n\n", snapshot.Backend, snapshot.Ingested, snapshot.Failed)
	b.WriteString(renderTable(rows))
	b.WriteString("\n")

	filePath := filepath.Join(snapshotDir, "summary.txt")
	if err := os.WriteFile(filePath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file '%s': %w", filePath, err)
	}

	w.log.WithField("rows", len(rows)).Debugf("Wrote summary table to %s", filePath)
	return nil
}

func (w *TextWriter) Close() error {
	return nil
}

// FormatTable renders a summary as a bordered table, one line per group and metric.
func FormatTable(summary *model.SummaryResult) string {
	return renderTable(Rows(model.Snapshot{Summary: summary}))
}

func renderTable(rows []Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableHeaders...)

	for _, r := range rows {
		t.Row(
			r.Group,
			r.Metric,
			strconv.Itoa(r.Count),
			formatFloat(r.Min),
			formatFloat(r.P10),
			formatFloat(r.Median),
			formatFloat(r.Mean),
			formatFloat(r.P90),
			formatFloat(r.P99),
			formatFloat(r.Max),
		)
	}
	return t.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package snapshot

import (
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/model"
	"sort"
	"time"
)

// Writer types understood by the factory.
const (
	TypeGob        = "gob"
	TypeText       = "text"
	TypeClickHouse = "clickhouse"
	TypeSQLite     = "sqlite"
)

// TimestampLayout names snapshot directories on disk.
const TimestampLayout = "2006-01-02_15-04-05"

// Row is one (group, metric) summary of a snapshot, the unit stored by the table writers.
type Row struct {
	Time    time.Time
	Backend string
	Group   string
	Metric  string
	model.Statistics
}

// Rows flattens a snapshot into rows ordered by group, then by catalog order.
// A snapshot without a summary yields no rows.
func Rows(s model.Snapshot) []Row {
	if s.Summary == nil {
		return nil
	}

	groups := make([]string, 0, len(s.Summary.Groups))
	for g := range s.Summary.Groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var rows []Row
	for _, g := range groups {
		summary := s.Summary.Groups[g]
		for _, name := range catalog.Names() {
			stats, ok := summary[name]
			if !ok {
				continue
			}
			rows = append(rows, Row{
				Time:       s.Time,
				Backend:    s.Backend,
				Group:      g,
				Metric:     name,
				Statistics: stats,
			})
		}
	}
	return rows
}

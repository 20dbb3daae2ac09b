package api

import (
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/snapshot"
	"time"
)

// HistoryPoint is one stored summary of a metric.
type HistoryPoint struct {
	Time    time.Time `json:"time"`
	Backend string    `json:"backend"`
	model.Statistics
}

func historyResponse(rows []snapshot.Row) []HistoryPoint {
	points := make([]HistoryPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, HistoryPoint{Time: r.Time, Backend: r.Backend, Statistics: r.Statistics})
	}
	return points
}

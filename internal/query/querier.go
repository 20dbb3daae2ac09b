package query

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/snapshot"
	"context"
	"errors"
	"time"
)

// ErrNoStore is returned by New when no enabled writer stores queryable history.
var ErrNoStore = errors.New("no enabled clickhouse or sqlite writer configured")

// DefaultLimit caps history queries that do not set a limit.
const DefaultLimit = 100

// HistoryRequest selects the stored summaries of one metric of one group.
type HistoryRequest struct {
	Group  string
	Metric string
	Since  time.Time
	Limit  int
}

// Querier reads historical summaries written by the table writers.
type Querier interface {
	// History returns matching rows, newest first.
	History(ctx context.Context, req HistoryRequest) ([]snapshot.Row, error)
	Close() error
}

// New creates a querier for the first enabled ClickHouse or SQLite writer of cfg.
func New(ctx context.Context, cfg *config.Config) (Querier, error) {
	for _, def := range cfg.Aggregator.Writers {
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case snapshot.TypeClickHouse:
			return NewClickHouseQuerier(ctx, def.ClickHouse)
		case snapshot.TypeSQLite:
			return NewSQLiteQuerier(ctx, def.SQLite.Path)
		}
	}
	return nil, ErrNoStore
}

func limitOf(req HistoryRequest) int {
	if req.Limit <= 0 {
		return DefaultLimit
	}
	return req.Limit
}

package factory

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/snapshot"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewWriters creates the enabled snapshot writers of the aggregator config.
// Unknown writer types are skipped with a warning. If any writer fails to start,
// the writers created so far are closed and the error is returned.
func NewWriters(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) ([]model.Writer, error) {
	var writers []model.Writer
	closeAll := func() {
		for _, w := range writers {
			_ = w.Close()
		}
	}

	for _, def := range cfg.Aggregator.Writers {
		if !def.Enabled {
			continue
		}

		interval, err := def.Interval()
		if err != nil {
			closeAll()
			return nil, err
		}

		var writer model.Writer
		switch def.Type {
		case snapshot.TypeGob:
			writer = snapshot.NewGobWriter(def.Gob.RootPath, interval, log)
		case snapshot.TypeText:
			writer = snapshot.NewTextWriter(def.Text.RootPath, interval, log)
		case snapshot.TypeClickHouse:
			writer, err = snapshot.NewClickHouseWriter(ctx, def.ClickHouse, interval, log)
		case snapshot.TypeSQLite:
			writer, err = snapshot.NewSQLiteWriter(ctx, def.SQLite.Path, interval, log)
		default:
			log.WithField("type", def.Type).Warn("Unknown writer type, skipping")
			continue
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create %s writer: %w", def.Type, err)
		}

		log.WithFields(logrus.Fields{
			"type":     def.Type,
			"interval": interval,
		}).Info("Created snapshot writer")
		writers = append(writers, writer)
	}

	return writers, nil
}

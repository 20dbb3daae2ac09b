package main

import (
	"PerfSpectra/internal/aggregator"
	"PerfSpectra/internal/config"
	_ "PerfSpectra/internal/engine/impl/exact"
	_ "PerfSpectra/internal/engine/impl/sketch"
	"PerfSpectra/internal/factory"
	"PerfSpectra/internal/logging"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/snapshot"
	"PerfSpectra/pkg/lighthouse"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var errNoSummary = errors.New("no report could be aggregated")

type options struct {
	group       string
	backend     string
	decimals    int
	alpha       float64
	format      string
	concurrency int
	global      bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ps-aggregate [report.json...]",
		Short: "Aggregate Lighthouse reports into per-group metric summaries",
		Long: `ps-aggregate reads Lighthouse JSON reports, aggregates the page metrics
of every report into one group and prints count, min, percentiles, mean and max
of each metric.

Reports that cannot be read or aggregated are logged and skipped.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.group, "group", "g", "default", "group key of the aggregated reports")
	flags.StringVarP(&opts.backend, "backend", "b", config.DefaultBackend, "stats backend: exact or sketch")
	flags.IntVar(&opts.decimals, "decimals", 0, "decimal places of the printed statistics")
	flags.Float64Var(&opts.alpha, "alpha", config.DefaultSketchAlpha, "relative accuracy of the sketch backend")
	flags.StringVarP(&opts.format, "format", "f", formatTable, "output format: json or table")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 8, "number of reports decoded in parallel")
	flags.BoolVar(&opts.global, "global", false, "print the pooled summary of all groups instead of per-group summaries")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, opts *options, files []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != formatJSON && opts.format != formatTable {
		return fmt.Errorf("unknown format '%s'", opts.format)
	}

	log := logging.New(opts.verbose)

	cfg := config.Default()
	cfg.Aggregator.Backend = opts.backend
	cfg.Aggregator.Decimals = opts.decimals
	cfg.Aggregator.Sketch.Alpha = opts.alpha
	if err := cfg.Validate(); err != nil {
		return err
	}

	backend, err := factory.NewBackend(cfg, log)
	if err != nil {
		return err
	}
	agg := aggregator.New(backend, log)

	reports, err := decodeReports(ctx, files, opts.concurrency, log)
	if err != nil {
		return err
	}

	for i, report := range reports {
		if report == nil {
			continue
		}
		if err := agg.AddToAggregate(report.Audits, opts.group); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"file":   files[i],
				"url":    report.URL(),
				"metric": aggregator.MetricOf(err),
			}).Warn("Skipping report that could not be aggregated")
		}
	}

	summary, ok := agg.Summarize()
	if !ok {
		return errNoSummary
	}
	if opts.global {
		global, _ := agg.SummarizeGlobal()
		summary = &model.SummaryResult{Groups: map[string]model.GroupSummary{"global": global}}
	}

	return render(out, opts.format, summary)
}

// decodeReports reads the files concurrently. The result keeps the order of files;
// unreadable files leave a nil entry.
func decodeReports(ctx context.Context, files []string, concurrency int, log logrus.FieldLogger) ([]*lighthouse.Report, error) {
	reports := make([]*lighthouse.Report, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := lighthouse.ReadFile(file)
			if err != nil {
				log.WithError(err).WithField("file", file).Warn("Skipping unreadable report")
				return nil
			}
			log.WithField("file", file).Debug("Decoded report")
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func render(out io.Writer, format string, summary *model.SummaryResult) error {
	if format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	_, err := fmt.Fprintln(out, strings.TrimRight(snapshot.FormatTable(summary), "\n"))
	return err
}

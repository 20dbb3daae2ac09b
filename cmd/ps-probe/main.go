package main

import (
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/logging"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/probe"
	"PerfSpectra/internal/snapshot"
	"PerfSpectra/pkg/lighthouse"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "pub", "Operating mode: 'pub' to publish Lighthouse reports, 'sub' to print published summaries.")
	group := flag.String("group", "default", "Group key of the published reports (pub mode).")
	verbose := flag.Bool("verbose", false, "Enable debug logging.")
	flag.Parse()

	log := logging.New(*verbose)

	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.WithError(err).Warn("Failed to load config file, using defaults and environment")
		if cfg, err = config.Parse(nil); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runPublisher(cfg.Probe, *group, flag.Args(), log)
	case "sub":
		runSubscriber(cfg.Probe, log)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher publishes every report file as an audit message.
func runPublisher(cfg config.ProbeConfig, group string, files []string, log logrus.FieldLogger) {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one Lighthouse report file is required in pub mode.")
		flag.Usage()
		os.Exit(1)
	}

	pub, err := probe.NewPublisher(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	out := make(chan *model.AuditMessage)
	go lighthouse.ReadReports(files, group, out, log)

	published := 0
	for msg := range out {
		if err := pub.PublishAudit(msg); err != nil {
			log.WithError(err).WithField("url", msg.URL).Error("Failed to publish audit")
			continue
		}
		published++
	}
	if err := pub.Flush(); err != nil {
		log.WithError(err).Warn("Failed to flush NATS connection")
	}

	log.WithFields(logrus.Fields{
		"published": published,
		"subject":   cfg.Subject,
	}).Info("Finished publishing reports")
}

// runSubscriber prints every summary and failure published by the engine.
func runSubscriber(cfg config.ProbeConfig, log logrus.FieldLogger) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	_, err = nc.Subscribe(cfg.SummarySubject, func(msg *nats.Msg) {
		summary, err := probe.DecodeSummary(msg.Data)
		if err != nil {
			log.WithError(err).Warn("Dropping undecodable summary")
			return
		}
		result := &model.SummaryResult{Groups: map[string]model.GroupSummary{summary.Group: summary.Stats}}
		header := summary.GeneratedAt.Format(snapshot.TimestampLayout)
		if summary.URL != "" {
			header += "  after " + summary.URL
		}
		fmt.Printf("%s\n%s\n", header, snapshot.FormatTable(result))
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	_, err = nc.Subscribe(cfg.ErrorSubject, func(msg *nats.Msg) {
		fmt.Printf("failed audit: %s\n", msg.Data)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	log.WithField("subject", cfg.SummarySubject).Info("Waiting for summaries...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

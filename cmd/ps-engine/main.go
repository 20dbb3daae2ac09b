package main

import (
	"PerfSpectra/internal/api"
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/engine/streamaggregator"
	"PerfSpectra/internal/logging"
	"PerfSpectra/internal/query"
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	log := logging.New(false)
	log.Info("Starting ps-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.WithField("backend", cfg.Aggregator.Backend).Info("Configuration loaded successfully")

	// 2. Initialize the stream aggregator and the optional history querier
	streamAgg, err := streamaggregator.NewStreamAggregator(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create stream aggregator: %v", err)
	}

	querier, err := query.New(context.Background(), cfg)
	switch {
	case errors.Is(err, query.ErrNoStore):
		log.Info("No queryable writer configured, history endpoint disabled")
	case err != nil:
		log.WithError(err).Warn("Failed to create history querier, history endpoint disabled")
		querier = nil
	}

	// 3. Start the aggregator, the API and the health server
	if err := streamAgg.Start(); err != nil {
		log.Fatalf("Failed to start stream aggregator: %v", err)
	}

	apiServer := api.NewServer(streamAgg.Manager(), querier, log)
	apiServer.Start(cfg.API.ListenAddr)

	health := api.NewHealthServer(log)
	lis, err := net.Listen("tcp", cfg.GRPC.ListenAddr)
	if err != nil {
		log.Fatalf("Could not listen on %s: %v", cfg.GRPC.ListenAddr, err)
	}
	go func() {
		if err := health.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC health server failed")
		}
	}()
	health.SetServing(true)

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutdown signal received, stopping engine...")
	health.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("API server forced to shutdown")
	}

	streamAgg.Stop()
	health.Stop()
	if querier != nil {
		_ = querier.Close()
	}
	log.Info("Shutdown complete")
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"greetprobe/internal/api"
	"greetprobe/internal/config"
	"greetprobe/internal/probe"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("probe client failed: %v", err)
	}
}

func run() error {
	// SERVER_URL is checked here, before anything is scheduled.
	cfg, err := config.LoadProbe()
	if err != nil {
		return err
	}

	logFile, err := config.SetupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	prober, err := probe.New(probe.Options{
		Endpoint:     cfg.ServerURL,
		TickInterval: cfg.TickInterval,
		MaxInFlight:  cfg.MaxInFlight,
		Client:       probe.NewHTTPClient(cfg.Protocol, cfg.HTTPTimeout),
		Registerer:   reg,
	})
	if err != nil {
		return err
	}

	if cfg.MetricsPort != "" {
		metricsServer := api.NewServer(cfg.MetricsPort, api.NewMetricsRouter(reg))
		if err := metricsServer.Start(); err != nil {
			return errors.WithMessage(err, "failed to start metrics server")
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("metrics server shutdown error: %v", err)
			}
		}()
	}

	// Blocks until a shutdown signal or an unrecognized failure.
	return prober.Run(ctx)
}

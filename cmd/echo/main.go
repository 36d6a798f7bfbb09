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
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("echo service failed: %v", err)
	}
	log.Println("echo service shut down gracefully")
}

func run() error {
	cfg := config.LoadEcho()

	logFile, err := config.SetupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	// Canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	handlers := api.NewHandlers(reg, nil)
	server := api.NewServer(cfg.HTTPPort, api.NewRouter(handlers, reg))
	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	log.Println("shutdown signal received, starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.WithMessage(err, "http server shutdown error")
	}
	log.Printf("served %d requests", handlers.RequestCount())
	return nil
}

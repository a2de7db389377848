package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/bootstrap"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/config"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:         ":" + cfg.WorkerMetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRunQueued(ctx, func(handlerCtx context.Context, runID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		app.WorkerMetrics.StartRun()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, runID)
		app.WorkerMetrics.FinishRun("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

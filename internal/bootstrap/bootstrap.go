package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/config"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/ports"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/usecase"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/archive/localfs"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/extractor/docfile"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/hashing"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/queue/nats"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/registry"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/repository/postgres"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/resilience"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.RunRepository

	SubmitUC  ports.RunSubmitter
	ProcessUC ports.RunProcessor

	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	archive, err := localfs.New(cfg.ArchiveRoot)
	if err != nil {
		return nil, fmt.Errorf("init document archive: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics("worker")
	extractor := docfile.New(docfile.Config{
		MinTextChars:       cfg.MinTextChars,
		OCRDPI:             cfg.OCRDPI,
		DefaultOCRMaxPages: cfg.OCRMaxPages,
		Pdftoppm:           cfg.OCRPdftoppm,
		Tesseract:          cfg.OCRTesseract,
		Lang:               cfg.OCRLang,
		OnOCRFallback: func() {
			workerMetrics.RecordOCRFallback("worker")
		},
		Logger: logger,
	}, executor)

	engine := usecase.NewMatchEngine(
		extractor,
		hashing.NewSHA256(),
		usecase.DefaultSignalPatterns(),
		usecase.DefaultScorePolicy(),
		logger,
	)
	engine.OnDocument = func(elapsed time.Duration, failed bool) {
		workerMetrics.ObserveDocument("worker", elapsed, failed)
	}

	defaults := domain.MatchOptions{
		ComputeHashes:   cfg.ComputeHashes,
		OCREnabled:      cfg.OCREnabled,
		OCRMaxPages:     cfg.OCRMaxPages,
		AutoAcceptScore: cfg.AutoAcceptScore,
		Concurrency:     cfg.MatchConcurrency,
	}

	submitUC := usecase.NewSubmitRunUseCase(repo, queue, defaults)
	processUC := usecase.NewProcessRunUseCase(repo, registry.NewLoader(), archive, engine, logger)
	processUC.OnQueueLag = func(lag time.Duration) {
		workerMetrics.ObserveQueueLag("worker", lag)
	}

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		SubmitUC:  submitUC,
		ProcessUC: processUC,

		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

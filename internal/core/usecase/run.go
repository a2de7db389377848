package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/ports"
)

// ProcessRunUseCase drives one queued run to completion: load the registry,
// resolve document paths against the archive, match, persist results.
type ProcessRunUseCase struct {
	repo    ports.RunRepository
	assets  ports.AssetSource
	archive ports.DocumentArchive
	engine  *MatchEngine
	logger  *slog.Logger

	// OnQueueLag, when set, observes the delay between run submission and
	// the start of processing.
	OnQueueLag func(lag time.Duration)
}

func NewProcessRunUseCase(
	repo ports.RunRepository,
	assets ports.AssetSource,
	archive ports.DocumentArchive,
	engine *MatchEngine,
	logger *slog.Logger,
) *ProcessRunUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessRunUseCase{
		repo:    repo,
		assets:  assets,
		archive: archive,
		engine:  engine,
		logger:  logger,
	}
}

func (uc *ProcessRunUseCase) ProcessByID(ctx context.Context, runID string) error {
	if err := uc.repo.UpdateStatus(ctx, runID, domain.RunRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	results, err := uc.runPipeline(ctx, runID)
	if err != nil {
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResults(ctx, runID, results); err != nil {
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, runID, domain.RunDone, ""); err != nil {
		return fmt.Errorf("set status=done: %w", err)
	}
	return nil
}

func (uc *ProcessRunUseCase) runPipeline(ctx context.Context, runID string) ([]domain.MatchResult, error) {
	run, err := uc.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch run by id: %w", err)
	}
	if uc.OnQueueLag != nil && !run.CreatedAt.IsZero() {
		uc.OnQueueLag(time.Since(run.CreatedAt))
	}

	registry, err := uc.assets.Load(ctx, run.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load asset registry: %w", err)
	}
	if len(registry) == 0 {
		uc.logger.Warn("asset registry is empty", "run_id", runID, "registry", run.RegistryPath)
	}

	// Path resolution failures are per-document: the offending document gets
	// an error result while the rest of the batch proceeds.
	docs := make([]domain.BatchDocument, len(run.DocumentPaths))
	for i, rel := range run.DocumentPaths {
		local, resolveErr := uc.archive.Resolve(rel)
		docs[i] = domain.BatchDocument{Path: rel, LocalPath: local, Err: resolveErr}
	}

	uc.logger.Info("matching batch",
		"run_id", runID,
		"documents", len(docs),
		"assets", len(registry),
		"concurrency", run.Options.Concurrency,
	)
	return uc.engine.MatchBatch(ctx, docs, registry, run.Options), nil
}

func (uc *ProcessRunUseCase) markFailed(ctx context.Context, runID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, runID, domain.RunFailed, processErr.Error())
}

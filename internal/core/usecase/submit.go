package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/ports"
)

// SubmitRunUseCase validates a batch submission, persists it as queued, and
// hands the run ID to the worker queue.
type SubmitRunUseCase struct {
	repo     ports.RunRepository
	queue    ports.MessageQueue
	defaults domain.MatchOptions
}

func NewSubmitRunUseCase(repo ports.RunRepository, queue ports.MessageQueue, defaults domain.MatchOptions) *SubmitRunUseCase {
	return &SubmitRunUseCase{repo: repo, queue: queue, defaults: defaults}
}

func (uc *SubmitRunUseCase) Submit(
	ctx context.Context,
	registryPath string,
	documentPaths []string,
	opts domain.MatchOptionsPatch,
) (*domain.MatchRun, error) {
	if registryPath == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit run", errors.New("registry_path is required"))
	}
	if len(documentPaths) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit run", errors.New("at least one document path is required"))
	}

	now := time.Now().UTC()
	run := &domain.MatchRun{
		ID:            uuid.NewString(),
		RegistryPath:  registryPath,
		DocumentPaths: documentPaths,
		Options:       opts.Resolve(uc.defaults),
		Status:        domain.RunQueued,
		Confirmations: domain.ConfirmationLog{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create match run: %w", err)
	}
	if err := uc.queue.PublishRunQueued(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("publish run queued event: %w", err)
	}
	return run, nil
}

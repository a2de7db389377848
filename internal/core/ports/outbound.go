package ports

import (
	"context"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

// TextExtractor turns one document file into best-effort plain text.
// Parser-level failures are recovered inside the implementation; an error
// return means the document itself is unreadable.
type TextExtractor interface {
	Extract(ctx context.Context, path string, opts domain.MatchOptions) (string, error)
}

// AssetSource loads the asset registry from an external table.
type AssetSource interface {
	Load(ctx context.Context, path string) ([]domain.AssetRecord, error)
}

// ContentHasher computes a content hash used only by the hash-override rule.
type ContentHasher interface {
	Hash(ctx context.Context, path string) (string, error)
}

// DocumentArchive resolves caller-supplied document paths against the
// archive root, refusing anything that escapes it.
type DocumentArchive interface {
	Resolve(rel string) (string, error)
}

// RunRepository persists match runs and their results.
type RunRepository interface {
	Create(ctx context.Context, run *domain.MatchRun) error
	GetByID(ctx context.Context, id string) (*domain.MatchRun, error)
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	SaveResults(ctx context.Context, id string, results []domain.MatchResult) error
	AppendConfirmations(ctx context.Context, id string, entries []domain.Confirmation) (domain.ConfirmationLog, error)
}

// MessageQueue hands queued runs from the API to the worker.
type MessageQueue interface {
	PublishRunQueued(ctx context.Context, runID string) error
	SubscribeRunQueued(ctx context.Context, handler func(context.Context, string) error) error
}

package ports

import (
	"context"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

// RunSubmitter is the inbound contract for submitting a matching batch.
// Options arrive as a patch so that omitted fields inherit service defaults.
type RunSubmitter interface {
	Submit(ctx context.Context, registryPath string, documentPaths []string, opts domain.MatchOptionsPatch) (*domain.MatchRun, error)
}

// RunProcessor is the inbound contract for asynchronous run processing.
type RunProcessor interface {
	ProcessByID(ctx context.Context, runID string) error
}

// RunReader is the inbound read model for run state and results.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.MatchRun, error)
}

// RunConfirmer appends confirmed document-asset decisions onto a stored run
// and returns the run's full confirmation log.
type RunConfirmer interface {
	AppendConfirmations(ctx context.Context, id string, entries []domain.Confirmation) (domain.ConfirmationLog, error)
}

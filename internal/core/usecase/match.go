package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/ports"
)

const topCandidateCount = 5

// MatchEngine runs the extract, parse and score pipeline for document batches.
// It holds no per-document state; the asset record set is shared read-only
// across the batch, so documents are processed by a bounded worker pool.
type MatchEngine struct {
	extractor ports.TextExtractor
	hasher    ports.ContentHasher
	patterns  SignalPatterns
	scorer    *Scorer
	logger    *slog.Logger

	// OnDocument, when set, observes every finished document with its wall
	// time and whether the result carries an error. Panic-recovered documents
	// count as failed.
	OnDocument func(elapsed time.Duration, failed bool)
}

func NewMatchEngine(
	extractor ports.TextExtractor,
	hasher ports.ContentHasher,
	patterns SignalPatterns,
	policy ScorePolicy,
	logger *slog.Logger,
) *MatchEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchEngine{
		extractor: extractor,
		hasher:    hasher,
		patterns:  patterns,
		scorer:    NewScorer(policy, patterns),
		logger:    logger,
	}
}

// MatchBatch produces one MatchResult per document, in input order. A failure
// in one document never aborts the batch: the failed document's result gets
// its error message and an empty candidate list. Cancellation is honored at
// per-document boundaries; results already produced remain valid.
func (e *MatchEngine) MatchBatch(
	ctx context.Context,
	docs []domain.BatchDocument,
	assets []domain.AssetRecord,
	opts domain.MatchOptions,
) []domain.MatchResult {
	results := make([]domain.MatchResult, len(docs))

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				results[i] = e.matchOne(ctx, docs[i], assets, opts)
				if e.OnDocument != nil {
					e.OnDocument(time.Since(start), results[i].Error != "")
				}
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (e *MatchEngine) matchOne(
	ctx context.Context,
	doc domain.BatchDocument,
	assets []domain.AssetRecord,
	opts domain.MatchOptions,
) (res domain.MatchResult) {
	res.FilePath = doc.Path
	res.TopCandidates = []domain.Candidate{}

	// Per-document isolation is a hard guarantee; a misbehaving parser must
	// not take the batch down.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("match recovered from panic", "path", doc.Path, "panic", r)
			res = domain.MatchResult{
				FilePath:      doc.Path,
				TopCandidates: []domain.Candidate{},
				Error:         fmt.Sprintf("panic during matching: %v", r),
			}
		}
	}()

	if doc.Err != nil {
		res.Error = doc.Err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	local := doc.LocalPath
	if local == "" {
		local = doc.Path
	}

	text, err := e.extractor.Extract(ctx, local, opts)
	if err != nil {
		e.logger.Warn("document unreadable", "path", doc.Path, "error", err)
		res.Error = err.Error()
		return res
	}

	res.Signals = e.patterns.Parse(text)

	meta, err := e.fileMeta(ctx, doc.Path, local, opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	scored := make([]domain.Candidate, 0, len(assets))
	for _, a := range assets {
		score, reasons := e.scorer.Score(meta, a, res.Signals)
		scored = append(scored, domain.Candidate{
			AssetID:      a.AssetID,
			Name:         a.Name,
			Score:        score,
			Reasons:      reasons,
			Manufacturer: a.Manufacturer,
			Model:        a.Model,
			Serial:       a.Serial,
			ExternalID:   a.ExternalID,
			Project:      a.Project,
		})
	}

	// Stable sort: equal scores keep registry order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	top := scored
	if len(top) > topCandidateCount {
		top = top[:topCandidateCount]
	}
	res.TopCandidates = top

	if len(top) > 0 && top[0].Score >= opts.AutoAcceptScore {
		choice := top[0]
		res.AutoChoice = &choice
	}
	return res
}

func (e *MatchEngine) fileMeta(ctx context.Context, displayPath, localPath string, opts domain.MatchOptions) (domain.FileMeta, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return domain.FileMeta{}, fmt.Errorf("stat document: %w", err)
	}
	meta := domain.FileMeta{
		Path:    displayPath,
		Dir:     filepath.Dir(localPath),
		Name:    filepath.Base(localPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if opts.ComputeHashes && e.hasher != nil {
		hash, err := e.hasher.Hash(ctx, localPath)
		if err != nil {
			return domain.FileMeta{}, fmt.Errorf("hash document: %w", err)
		}
		meta.Hash = hash
	}
	return meta, nil
}

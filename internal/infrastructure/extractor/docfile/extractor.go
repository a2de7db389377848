// Package docfile extracts best-effort plain text from O&M document files.
//
// PDF extraction is a layered fallback chain: native text layer first, an
// alternate content-stream parser second, OCR last. Each stage is
// independently fault tolerant; a stage failure is logged and the chain
// continues with whatever text already exists. DOCX paragraphs are read
// directly from the archive; plain text passes through; anything else yields
// empty text rather than an error.
package docfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/resilience"
)

// Config tunes the fallback chain and the external OCR toolchain.
type Config struct {
	// MinTextChars is the minimum useful text length; below it the next
	// fallback stage runs (default 100).
	MinTextChars int

	// OCRDPI is the rasterization resolution handed to pdftoppm. 144 is 2x
	// the 72 dpi PDF user-space base, which measurably helps tesseract on
	// small print (default 144).
	OCRDPI int

	// DefaultOCRMaxPages caps rasterization when the run options leave the
	// page cap unset (default 5).
	DefaultOCRMaxPages int

	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // tesseract language, default "eng"

	// OnOCRFallback is invoked once per document that reaches the OCR stage.
	OnOCRFallback func()

	Logger *slog.Logger
}

type stageFn func(ctx context.Context, path string) (string, error)

// Extractor implements ports.TextExtractor with the layered chain.
type Extractor struct {
	cfg      Config
	runner   Runner
	executor *resilience.Executor

	// Stage indirection so tests can observe and substitute stages.
	nativePDF stageFn
	streamPDF stageFn
	ocrPDF    func(ctx context.Context, path string, maxPages int) (string, error)
}

func New(cfg Config, executor *resilience.Executor) *Extractor {
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 144
	}
	if cfg.DefaultOCRMaxPages <= 0 {
		cfg.DefaultOCRMaxPages = 5
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Extractor{
		cfg:      cfg,
		runner:   execRunner{},
		executor: executor,
	}
	e.nativePDF = e.nativePDFText
	e.streamPDF = e.streamPDFText
	e.ocrPDF = e.ocrPDFText
	return e
}

// Extract dispatches on file extension. An error return means the file
// itself is unreadable; parser failures inside a supported format degrade to
// partial or empty text instead.
func (e *Extractor) Extract(ctx context.Context, path string, opts domain.MatchOptions) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(ctx, path, opts), nil
	case ".docx":
		text, err := extractDocxText(path)
		if err != nil {
			e.cfg.Logger.Warn("docx extraction failed", "path", path, "error", err)
			return "", nil
		}
		return text, nil
	case ".txt", ".text":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	default:
		// Unsupported format is not an error: empty text, empty signals.
		return "", nil
	}
}

// extractPDF walks the fallback chain. OCR replaces the (near-empty) text
// accumulated so far; the alternate parser appends to it.
func (e *Extractor) extractPDF(ctx context.Context, path string, opts domain.MatchOptions) string {
	text, err := e.nativePDF(ctx, path)
	if err != nil {
		e.cfg.Logger.Warn("native pdf text layer failed", "path", path, "error", err)
	}
	text = strings.TrimSpace(text)

	if len(text) < e.cfg.MinTextChars {
		more, err := e.streamPDF(ctx, path)
		if err != nil {
			e.cfg.Logger.Warn("alternate pdf parser failed", "path", path, "error", err)
		}
		if more = strings.TrimSpace(more); more != "" {
			if text != "" {
				text += "\n"
			}
			text += more
		}
	}

	if opts.OCREnabled && len(text) < e.cfg.MinTextChars {
		if e.cfg.OnOCRFallback != nil {
			e.cfg.OnOCRFallback()
		}
		maxPages := opts.OCRMaxPages
		if maxPages <= 0 {
			maxPages = e.cfg.DefaultOCRMaxPages
		}
		e.cfg.Logger.Debug("falling back to ocr", "path", path, "max_pages", maxPages)
		ocrText, err := e.ocrPDF(ctx, path, maxPages)
		if err != nil {
			e.cfg.Logger.Warn("ocr failed", "path", path, "error", err)
		}
		if ocrText = strings.TrimSpace(ocrText); ocrText != "" {
			text = ocrText
		}
	}

	return text
}

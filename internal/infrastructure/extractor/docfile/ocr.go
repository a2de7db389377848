package docfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/infrastructure/resilience"
)

// ocrPDFText rasterizes up to maxPages pages and runs tesseract on each.
// OCR is the most expensive and least precise stage, so it only ever runs
// after both text-layer parsers came up short.
func (e *Extractor) ocrPDFText(ctx context.Context, path string, maxPages int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "omai-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create ocr temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.cfg.Logger.Warn("failed to remove ocr temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l <maxPages> <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.OCRDPI),
		"-png",
		"-f", "1",
		"-l", strconv.Itoa(maxPages),
		path, prefix,
	)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(images)
	if len(images) == 0 {
		return "", errors.New("pdftoppm produced no images")
	}

	var sb strings.Builder
	for _, img := range images {
		pageText, err := e.tesseractText(ctx, img)
		if err != nil {
			e.cfg.Logger.Warn("ocr page failed", "image", img, "error", err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

func (e *Extractor) tesseractText(ctx context.Context, imagePath string) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		// tesseract <file> stdout -l <lang>
		out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imagePath, "stdout", "-l", e.cfg.Lang)
		if err != nil {
			return fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
		}
		text = string(out)
		return nil
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "ocr.tesseract", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// classifyOCRError: cancellation is neither retried nor counted against the
// breaker; a missing binary is a configuration fault the breaker should trip
// on rather than retry.
func classifyOCRError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

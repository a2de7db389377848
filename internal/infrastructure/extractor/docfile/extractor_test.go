package docfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

type stageCalls struct {
	native, stream, ocr int
}

func newStubbedExtractor(t *testing.T, calls *stageCalls, nativeText, streamText, ocrText string) *Extractor {
	t.Helper()
	e := New(Config{}, nil)
	e.nativePDF = func(context.Context, string) (string, error) {
		calls.native++
		return nativeText, nil
	}
	e.streamPDF = func(context.Context, string) (string, error) {
		calls.stream++
		return streamText, nil
	}
	e.ocrPDF = func(_ context.Context, _ string, maxPages int) (string, error) {
		calls.ocr++
		return ocrText, nil
	}
	return e
}

func TestExtractPDFStopsAfterSufficientNativeText(t *testing.T) {
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")
	long := strings.Repeat("equipment text ", 20)

	var calls stageCalls
	e := newStubbedExtractor(t, &calls, long, "stream", "ocr")

	text, err := e.Extract(context.Background(), path, domain.MatchOptions{OCREnabled: true})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != strings.TrimSpace(long) {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls.native != 1 || calls.stream != 0 || calls.ocr != 0 {
		t.Fatalf("unexpected stage calls: %+v", calls)
	}
}

func TestExtractPDFAppendsAlternateParserOutput(t *testing.T) {
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")
	streamText := strings.Repeat("recovered stream text ", 10)

	var calls stageCalls
	e := newStubbedExtractor(t, &calls, "short", streamText, "ocr")

	text, err := e.Extract(context.Background(), path, domain.MatchOptions{OCREnabled: true})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.HasPrefix(text, "short\n") || !strings.Contains(text, "recovered stream text") {
		t.Fatalf("expected appended stream output, got %q", text)
	}
	if calls.native != 1 || calls.stream != 1 || calls.ocr != 0 {
		t.Fatalf("unexpected stage calls: %+v", calls)
	}
}

func TestExtractPDFFallsBackToOCRAndReplacesText(t *testing.T) {
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")

	fallbacks := 0
	var calls stageCalls
	e := newStubbedExtractor(t, &calls, "short", "", "OCR RESULT AHU-1001")
	e.cfg.OnOCRFallback = func() { fallbacks++ }

	text, err := e.Extract(context.Background(), path, domain.MatchOptions{OCREnabled: true, OCRMaxPages: 3})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "OCR RESULT AHU-1001" {
		t.Fatalf("expected ocr text to replace short text, got %q", text)
	}
	if calls.native != 1 || calls.stream != 1 || calls.ocr != 1 {
		t.Fatalf("unexpected stage calls: %+v", calls)
	}
	if fallbacks != 1 {
		t.Fatalf("expected 1 fallback notification, got %d", fallbacks)
	}
}

func TestExtractPDFSkipsOCRWhenDisabled(t *testing.T) {
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")

	var calls stageCalls
	e := newStubbedExtractor(t, &calls, "short", "", "ocr")

	text, err := e.Extract(context.Background(), path, domain.MatchOptions{OCREnabled: false})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "short" {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls.ocr != 0 {
		t.Fatalf("ocr must not run when disabled")
	}
}

func TestExtractPDFKeepsShortTextWhenOCREmpty(t *testing.T) {
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")

	var calls stageCalls
	e := newStubbedExtractor(t, &calls, "short", "", "")

	text, err := e.Extract(context.Background(), path, domain.MatchOptions{OCREnabled: true})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "short" {
		t.Fatalf("empty ocr output must not clobber existing text, got %q", text)
	}
}

func TestExtractTxtPassthrough(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "  Serial No. ABC-12345  \n")

	e := New(Config{}, nil)
	text, err := e.Extract(context.Background(), path, domain.MatchOptions{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Serial No. ABC-12345" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractUnsupportedFormatYieldsEmptyText(t *testing.T) {
	path := writeTempFile(t, "photo.jpg", "binary")

	e := New(Config{}, nil)
	text, err := e.Extract(context.Background(), path, domain.MatchOptions{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestExtractMissingFileIsAnError(t *testing.T) {
	e := New(Config{}, nil)
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"), domain.MatchOptions{})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

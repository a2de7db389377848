package docfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// nativePDFText reads the PDF text layer page by page, concatenating
// non-blank pages with newline separators.
func (e *Extractor) nativePDFText(ctx context.Context, path string) (text string, err error) {
	// The parser panics on some malformed cross-reference tables; contain it
	// so the chain can fall through to the next stage.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		page := reader.Page(pageNr)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.cfg.Logger.Debug("pdf page unreadable", "path", path, "page", pageNr, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

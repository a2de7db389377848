package docfile

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// extractDocxText reads word/document.xml out of the .docx ZIP archive and
// returns the paragraph texts joined by newlines. No OCR fallback applies to
// word-processor formats.
func extractDocxText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	var paragraph strings.Builder
	inParagraph := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" {
				inParagraph = true
				paragraph.Reset()
			}
		case xml.CharData:
			if inParagraph {
				paragraph.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				if text := strings.TrimSpace(paragraph.String()); text != "" {
					if sb.Len() > 0 {
						sb.WriteByte('\n')
					}
					sb.WriteString(text)
				}
			}
		}
	}
	return sb.String(), nil
}

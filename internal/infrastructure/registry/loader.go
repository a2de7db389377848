// Package registry loads the equipment registry from spreadsheet files.
// Supported formats are .xlsx workbooks and .csv files; both map columns by
// header name so column order in the source file does not matter.
package registry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

// Loader implements ports.AssetSource for spreadsheet-backed registries.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the registry at path. Rows keep their file order; rows with no
// populated fields are skipped. Unknown columns are ignored and missing
// columns produce empty fields.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.AssetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return l.loadXLSX(path)
	case ".csv":
		return l.loadCSV(path)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "registry load",
			fmt.Errorf("extension %q", filepath.Ext(path)))
	}
}

func (l *Loader) loadXLSX(path string) ([]domain.AssetRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return recordsFromRows(rows), nil
}

func (l *Loader) loadCSV(path string) ([]domain.AssetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return recordsFromRows(rows), nil
}

// columnSetters maps normalized header names onto record fields.
var columnSetters = map[string]func(*domain.AssetRecord, string){
	"asset_id":     func(r *domain.AssetRecord, v string) { r.AssetID = v },
	"external_id":  func(r *domain.AssetRecord, v string) { r.ExternalID = v },
	"tag":          func(r *domain.AssetRecord, v string) { r.Tag = v },
	"name":         func(r *domain.AssetRecord, v string) { r.Name = v },
	"manufacturer": func(r *domain.AssetRecord, v string) { r.Manufacturer = v },
	"model":        func(r *domain.AssetRecord, v string) { r.Model = v },
	"serial":       func(r *domain.AssetRecord, v string) { r.Serial = v },
	"project":      func(r *domain.AssetRecord, v string) { r.Project = v },
	"file_hash":    func(r *domain.AssetRecord, v string) { r.FileHash = v },
}

func recordsFromRows(rows [][]string) []domain.AssetRecord {
	if len(rows) == 0 {
		return nil
	}

	setters := make([]func(*domain.AssetRecord, string), len(rows[0]))
	for i, header := range rows[0] {
		setters[i] = columnSetters[normalizeHeader(header)]
	}

	records := make([]domain.AssetRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec domain.AssetRecord
		populated := false
		for i, cell := range row {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			setters[i](&rec, value)
			populated = true
		}
		if populated {
			records = append(records, rec)
		}
	}
	return records
}

// normalizeHeader accepts "Asset ID", "asset-id" and "asset_id" alike.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

var exportHeaders = []string{
	"file_path",
	"asset_id",
	"asset_name",
	"score",
	"reasons",
	"manufacturer",
	"model",
	"serial",
	"external_id",
	"project",
}

// ExportRows flattens match results into one row per (document, candidate)
// pair for downstream persistence. Documents without candidates contribute
// no rows.
func ExportRows(results []domain.MatchResult) []domain.ExportRow {
	var rows []domain.ExportRow
	for _, r := range results {
		for _, c := range r.TopCandidates {
			rows = append(rows, domain.ExportRow{
				FilePath:     r.FilePath,
				AssetID:      c.AssetID,
				AssetName:    c.Name,
				Score:        c.Score,
				Reasons:      domain.JoinReasons(c.Reasons),
				Manufacturer: c.Manufacturer,
				Model:        c.Model,
				Serial:       c.Serial,
				ExternalID:   c.ExternalID,
				Project:      c.Project,
			})
		}
	}
	return rows
}

// WriteCSV streams the flat table as CSV with a header row.
func WriteCSV(w io.Writer, rows []domain.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.FilePath,
			row.AssetID,
			row.AssetName,
			strconv.Itoa(row.Score),
			row.Reasons,
			row.Manufacturer,
			row.Model,
			row.Serial,
			row.ExternalID,
			row.Project,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX renders the flat table as an XLSX workbook and returns its bytes.
func BuildXLSX(rows []domain.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Matches"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header cell: %w", err)
		}
	}

	for rowIdx, row := range rows {
		values := []any{
			row.FilePath,
			row.AssetID,
			row.AssetName,
			row.Score,
			row.Reasons,
			row.Manufacturer,
			row.Model,
			row.Serial,
			row.ExternalID,
			row.Project,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

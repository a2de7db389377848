package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

func TestLoadCSVMapsColumnsByHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	data := "name,asset_id,manufacturer,notes\n" +
		"Chiller 1,AHU-1001,Trane,ignore me\n" +
		"Pump 7,PMP-0007,,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].AssetID != "AHU-1001" || records[0].Name != "Chiller 1" || records[0].Manufacturer != "Trane" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].AssetID != "PMP-0007" || records[1].Manufacturer != "" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestLoadCSVSkipsEmptyRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	data := "asset_id,name\nAHU-1001,Chiller 1\n,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestLoadXLSXMapsColumnsByHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"Asset ID", "Name", "Serial", "Project"},
		{"AHU-1001", "Air Handler 1", "SN-12345", "Plant A"},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	records, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	want := domain.AssetRecord{AssetID: "AHU-1001", Name: "Air Handler 1", Serial: "SN-12345", Project: "Plant A"}
	if records[0] != want {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "registry.pdf")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

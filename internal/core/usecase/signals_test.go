package usecase

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseExtractsAssetIDsUppercasedAndDeduplicated(t *testing.T) {
	text := "Unit ahu-1001 serves the west wing.\nSee also AHU-1001 and pmp0042."
	sig := DefaultSignalPatterns().Parse(text)

	want := []string{"AHU-1001", "PMP0042"}
	if !reflect.DeepEqual(sig.AssetIDs, want) {
		t.Fatalf("AssetIDs = %v, want %v", sig.AssetIDs, want)
	}
}

func TestParseExtractsLabeledSerials(t *testing.T) {
	text := "Serial No. ABC-12345\nSN: A1\nS/N 556677"
	sig := DefaultSignalPatterns().Parse(text)

	for _, want := range []string{"ABC-12345", "556677"} {
		if !containsString(sig.Serials, want) {
			t.Fatalf("Serials = %v, missing %q", sig.Serials, want)
		}
	}
	// A1 is below the 5-char minimum for serial values.
	if containsString(sig.Serials, "A1") {
		t.Fatalf("Serials = %v, should not contain short value", sig.Serials)
	}
}

func TestParseExtractsModelsAndManufacturers(t *testing.T) {
	text := "Model No. RTU-500X installed 2019.\nManufacturer: Trane\nMade by: Carrier Corp"
	sig := DefaultSignalPatterns().Parse(text)

	if !containsString(sig.Models, "RTU-500X") {
		t.Fatalf("Models = %v, missing RTU-500X", sig.Models)
	}
	if !containsString(sig.Manufacturers, "TRANE") {
		t.Fatalf("Manufacturers = %v, missing TRANE", sig.Manufacturers)
	}
	if !containsString(sig.Manufacturers, "CARRIER CORP") {
		t.Fatalf("Manufacturers = %v, missing CARRIER CORP", sig.Manufacturers)
	}
}

func TestParseValuesTrimmedOfLabelPunctuation(t *testing.T) {
	sig := DefaultSignalPatterns().Parse("Serial Number: #-A1B2C3D4")
	if !containsString(sig.Serials, "A1B2C3D4") {
		t.Fatalf("Serials = %v, expected trimmed A1B2C3D4", sig.Serials)
	}
}

func TestGuessTitleTermsStripsBoilerplate(t *testing.T) {
	text := "Operations and Maintenance Manual\n\nChiller Plant 3\nInstructions for operators\n"
	got := guessTitleTerms(text)

	for _, banned := range []string{"Manual", "Instructions", "Maintenance", "Operations"} {
		if strings.Contains(got, banned) {
			t.Fatalf("title terms %q still contain %q", got, banned)
		}
	}
	if !strings.Contains(got, "Chiller Plant 3") {
		t.Fatalf("title terms %q missing equipment name", got)
	}
}

func TestGuessTitleTermsCapsAtTwentyLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("line\n")
	}
	sb.WriteString("UNIQUE-TRAILER\n")

	got := guessTitleTerms(sb.String())
	if strings.Contains(got, "UNIQUE-TRAILER") {
		t.Fatalf("title terms should ignore lines past the cap, got %q", got)
	}
}

func TestParseEmptyText(t *testing.T) {
	sig := DefaultSignalPatterns().Parse("")
	if len(sig.AssetIDs) != 0 || len(sig.Serials) != 0 || len(sig.Models) != 0 ||
		len(sig.Manufacturers) != 0 || sig.TitleTerms != "" {
		t.Fatalf("expected empty signals, got %+v", sig)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	text := "AHU-1001 Model RTU-500X Serial No. ABC-12345 Manufacturer: Trane"
	patterns := DefaultSignalPatterns()

	first := patterns.Parse(text)
	for i := 0; i < 5; i++ {
		if got := patterns.Parse(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("parse not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestNormalizeLoose(t *testing.T) {
	got := normalizeLoose("Air-Handler_Unit (West).2")
	if got != "air handler unit west 2" {
		t.Fatalf("normalizeLoose() = %q", got)
	}
}

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

func testTable() *models.DeckSummaryTable {
	return &models.DeckSummaryTable{
		Dataset: "blb",
		Types:   []string{"Creature", "Instant", "Land"},
		Rows: []models.DeckSummary{
			{
				DeckID:        "d1",
				Wins:          2,
				Losses:        1,
				AvgManaCurve:  3,
				BombDensity:   1.0 / 3.0,
				ColorIdentity: []string{"R"},
				TypeCounts:    map[string]int{"Creature": 1, "Instant": 1, "Land": 1},
			},
			{
				DeckID:       "d2",
				Wins:         0,
				Losses:       4,
				AvgManaCurve: 0,
				BombDensity:  0,
				TypeCounts:   map[string]int{"Creature": 0, "Instant": 0, "Land": 0},
			},
		},
		UnknownCards: []string{"Mystery Card"},
	}
}

func TestExportCSV(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "out", "blb.csv")

	exporter := NewExporter(Options{
		Format:   FormatCSV,
		FilePath: filePath,
	})
	if err := exporter.Export(testTable()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}

	wantHeader := "deck_id,wins,losses,avg_mana_curve,bomb_density,color_identity,num_creature,num_instant,num_land"
	if lines[0] != wantHeader {
		t.Errorf("Unexpected header:\n got %s\nwant %s", lines[0], wantHeader)
	}

	wantRow := `d1,2,1,3.000000,0.333333,"[""R""]",1,1,1`
	if lines[1] != wantRow {
		t.Errorf("Unexpected first row:\n got %s\nwant %s", lines[1], wantRow)
	}

	if !strings.HasPrefix(lines[2], "d2,0,4,0.000000,0.000000,[],") {
		t.Errorf("Unexpected second row: %s", lines[2])
	}
}

func TestExportRefusesOverwrite(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "blb.csv")
	if err := os.WriteFile(filePath, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := NewExporter(Options{Format: FormatCSV, FilePath: filePath}).Export(testTable())
	if err == nil {
		t.Fatal("Expected error for existing file")
	}

	content, _ := os.ReadFile(filePath)
	if string(content) != "keep" {
		t.Errorf("Existing file was modified: %q", content)
	}

	err = NewExporter(Options{Format: FormatCSV, FilePath: filePath, Overwrite: true}).Export(testTable())
	if err != nil {
		t.Fatalf("Export with overwrite failed: %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "blb.json")

	err := NewExporter(Options{Format: FormatJSON, FilePath: filePath, PrettyJSON: true}).Export(testTable())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var result models.DeckSummaryTable
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[1].ColorIdentity == nil {
		t.Error("Expected colorless deck to serialize as an empty array")
	}
	if !strings.Contains(string(content), `"color_identity": []`) {
		t.Errorf("Expected empty color array in output:\n%s", content)
	}
}

func TestColumnarRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatColumnar, FormatColumnarSnappy, FormatParquet} {
		t.Run(string(format), func(t *testing.T) {
			filePath := filepath.Join(t.TempDir(), "blb"+format.Ext())

			if err := NewExporter(Options{Format: format, FilePath: filePath}).Export(testTable()); err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			got, err := ReadSummary(filePath)
			if err != nil {
				t.Fatalf("ReadSummary failed: %v", err)
			}

			want := testTable()
			want.Rows[1].ColorIdentity = []string{}
			if got.Dataset != want.Dataset {
				t.Errorf("Dataset: got %q, want %q", got.Dataset, want.Dataset)
			}
			if strings.Join(got.Types, ",") != strings.Join(want.Types, ",") {
				t.Errorf("Types: got %v, want %v", got.Types, want.Types)
			}
			if len(got.UnknownCards) != 1 || got.UnknownCards[0] != "Mystery Card" {
				t.Errorf("UnknownCards: got %v", got.UnknownCards)
			}
			if got.Rows[0].BombDensity != want.Rows[0].BombDensity {
				t.Errorf("BombDensity lost precision: got %v", got.Rows[0].BombDensity)
			}
			if got.Rows[0].TypeCounts["Instant"] != 1 {
				t.Errorf("TypeCounts: got %v", got.Rows[0].TypeCounts)
			}
			if got.Rows[1].Losses != 4 || len(got.Rows[1].ColorIdentity) != 0 {
				t.Errorf("Second row: got %+v", got.Rows[1])
			}
		})
	}
}

func TestReadSummaryCSV(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "blb.csv")
	if err := NewExporter(Options{Format: FormatCSV, FilePath: filePath, FloatPrecision: -1}).Export(testTable()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	got, err := ReadSummary(filePath)
	if err != nil {
		t.Fatalf("ReadSummary failed: %v", err)
	}

	// CSV keeps only the lowercase column names.
	if strings.Join(got.Types, ",") != "creature,instant,land" {
		t.Errorf("Types: got %v", got.Types)
	}
	if got.Rows[0].BombDensity != 1.0/3.0 {
		t.Errorf("BombDensity: got %v", got.Rows[0].BombDensity)
	}
	if got.Rows[0].ColorIdentity[0] != "R" || got.Rows[0].TypeCounts["land"] != 1 {
		t.Errorf("First row: got %+v", got.Rows[0])
	}
}

func TestReadSummaryMissingColumn(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(filePath, []byte("deck_id,wins\nd1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadSummary(filePath)
	if !errors.Is(err, dataerr.ErrMissingColumn) {
		t.Errorf("Expected missing column error, got %v", err)
	}
}

func TestExportEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	table := &models.DeckSummaryTable{Dataset: "blb", Types: []string{"Land"}}
	if err := ExportToWriter(&buf, FormatCSV, table, false, 0); err != nil {
		t.Fatalf("ExportToWriter failed: %v", err)
	}

	want := "deck_id,wins,losses,avg_mana_curve,bomb_density,color_identity,num_land\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"columnar", FormatColumnar, false},
		{"parquet", FormatParquet, false},
		{"feather", FormatColumnar, false},
		{"", "", true},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportBuilder(t *testing.T) {
	dir := t.TempDir()

	err := NewExportBuilder().
		WithFormat(FormatColumnarSnappy).
		WithDefaultFilename(dir, "BLB").
		Export(testTable())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "blb_summary.colz")); err != nil {
		t.Errorf("Expected default output file: %v", err)
	}

	var buf bytes.Buffer
	if err := NewExportBuilder().WithWriter(&buf).WithFormat(FormatJSON).Export(testTable()); err != nil {
		t.Fatalf("Export to writer failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"deck_id":"d1"`) {
		t.Errorf("Unexpected JSON: %s", buf.String())
	}

	if err := NewExportBuilder().Export(testTable()); err == nil {
		t.Error("Expected error without destination")
	}
	if err := NewExportBuilder().WithFormat("xlsx").WithWriter(&buf).Export(testTable()); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

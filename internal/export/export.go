// Package export writes deck summary tables to disk or streams.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// Format represents the export format.
type Format string

const (
	// FormatCSV writes a header row followed by one row per deck.
	FormatCSV Format = "csv"
	// FormatJSON writes the whole table as a JSON document.
	FormatJSON Format = "json"
	// FormatColumnar writes the uncompressed columnar table format.
	FormatColumnar Format = Format(tablefile.FormatColumnar)
	// FormatColumnarSnappy writes the snappy-compressed columnar format.
	FormatColumnarSnappy Format = Format(tablefile.FormatColumnarSnappy)
	// FormatParquet writes a snappy-compressed parquet file.
	FormatParquet Format = Format(tablefile.FormatParquet)
)

// DefaultFloatPrecision is the number of decimals written for float columns
// in CSV output.
const DefaultFloatPrecision = 6

// ParseFormat validates a format name. "feather" is accepted as an alias for
// the uncompressed columnar format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	tf, err := tablefile.ParseFormat(s)
	if err != nil || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
	return Format(tf), nil
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return tablefile.Format(f).Ext()
}

// Options holds configuration for export operations.
type Options struct {
	Format     Format
	FilePath   string
	PrettyJSON bool
	Overwrite  bool

	// FloatPrecision applies to CSV output. Zero selects
	// DefaultFloatPrecision; negative writes the shortest exact
	// representation.
	FloatPrecision int
}

// Exporter handles exporting summary tables to various formats.
type Exporter struct {
	opts Options
}

// NewExporter creates a new Exporter with the given options.
func NewExporter(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Options returns the exporter's configuration.
func (e *Exporter) Options() Options {
	return e.opts
}

// Export writes the table to the configured file. The file is replaced
// atomically so a failed export never leaves a partial output behind.
func (e *Exporter) Export(table *models.DeckSummaryTable) error {
	staged, err := e.Stage(table)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// Stage writes the table to a temporary file next to the configured path
// and returns it uncommitted. The caller must Commit or Discard it.
func (e *Exporter) Stage(table *models.DeckSummaryTable) (*tablefile.Staged, error) {
	if table == nil {
		return nil, fmt.Errorf("no table to export")
	}
	if e.opts.FilePath == "" {
		return nil, fmt.Errorf("export file path is required")
	}
	if _, err := os.Stat(e.opts.FilePath); err == nil && !e.opts.Overwrite {
		return nil, fmt.Errorf("file already exists: %s (use overwrite option to replace)", e.opts.FilePath)
	}

	switch e.opts.Format {
	case FormatCSV, FormatJSON:
		return tablefile.Stage(e.opts.FilePath, func(w io.Writer) error {
			return ExportToWriter(w, e.opts.Format, table, e.opts.PrettyJSON, e.opts.FloatPrecision)
		})
	case FormatColumnar, FormatColumnarSnappy, FormatParquet:
		frame, err := SummaryFrame(table)
		if err != nil {
			return nil, err
		}
		return tablefile.Stage(e.opts.FilePath, func(w io.Writer) error {
			return tablefile.EncodeTable(w, tablefile.Format(e.opts.Format), frame)
		})
	default:
		return nil, fmt.Errorf("unsupported export format: %s", e.opts.Format)
	}
}

// ExportToWriter writes the table to w. Useful for writing to stdout.
func ExportToWriter(w io.Writer, format Format, table *models.DeckSummaryTable, prettyJSON bool, floatPrecision int) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		if prettyJSON {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(jsonTable(table))
	case FormatCSV:
		frame, err := SummaryFrame(table)
		if err != nil {
			return err
		}
		if floatPrecision == 0 {
			floatPrecision = DefaultFloatPrecision
		}
		return tablefile.EncodeCSV(w, frame, tablefile.CSVOptions{FloatPrecision: floatPrecision})
	case FormatColumnar, FormatColumnarSnappy, FormatParquet:
		frame, err := SummaryFrame(table)
		if err != nil {
			return err
		}
		return tablefile.EncodeTable(w, tablefile.Format(format), frame)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// jsonTable normalizes nil slices so the JSON output always carries arrays.
func jsonTable(t *models.DeckSummaryTable) *models.DeckSummaryTable {
	out := *t
	if out.Types == nil {
		out.Types = []string{}
	}
	out.Rows = make([]models.DeckSummary, len(t.Rows))
	for i, row := range t.Rows {
		if row.ColorIdentity == nil {
			row.ColorIdentity = []string{}
		}
		out.Rows[i] = row
	}
	return &out
}

// GenerateFilename generates a default filename for a dataset's summary.
func GenerateFilename(dataset string, format Format) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_summary_%s%s", strings.ToLower(dataset), timestamp, format.Ext())
}

// DefaultPath returns dir/<dataset>_summary<ext>.
func DefaultPath(dir, dataset string, format Format) string {
	return filepath.Join(dir, strings.ToLower(dataset)+"_summary"+format.Ext())
}

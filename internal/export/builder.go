package export

import (
	"fmt"
	"io"

	"github.com/ramonehamilton/deckstats/internal/models"
)

// ExportBuilder provides a fluent API for configuring and executing export operations.
//
// Example usage:
//
//	err := NewExportBuilder().
//	    WithFormat(FormatCSV).
//	    WithFilePath("out/blb_summary.csv").
//	    WithOverwrite(true).
//	    Export(table)
type ExportBuilder struct {
	format         Format
	filePath       string
	prettyJSON     bool
	overwrite      bool
	floatPrecision int
	writer         io.Writer
	useWriter      bool
}

// NewExportBuilder creates a new ExportBuilder writing CSV.
func NewExportBuilder() *ExportBuilder {
	return &ExportBuilder{format: FormatCSV}
}

// WithFormat sets the export format.
func (b *ExportBuilder) WithFormat(format Format) *ExportBuilder {
	b.format = format
	return b
}

// WithFilePath sets the output file path for the export.
// The directory will be created if it doesn't exist.
func (b *ExportBuilder) WithFilePath(filePath string) *ExportBuilder {
	b.filePath = filePath
	b.useWriter = false
	return b
}

// WithWriter sets an io.Writer as the output destination instead of a file.
func (b *ExportBuilder) WithWriter(w io.Writer) *ExportBuilder {
	b.writer = w
	b.useWriter = true
	return b
}

// WithPrettyJSON enables indentation for JSON exports.
func (b *ExportBuilder) WithPrettyJSON(pretty bool) *ExportBuilder {
	b.prettyJSON = pretty
	return b
}

// WithOverwrite enables overwriting existing files.
func (b *ExportBuilder) WithOverwrite(overwrite bool) *ExportBuilder {
	b.overwrite = overwrite
	return b
}

// WithFloatPrecision sets the decimals written for CSV float columns.
func (b *ExportBuilder) WithFloatPrecision(precision int) *ExportBuilder {
	b.floatPrecision = precision
	return b
}

// WithDefaultFilename places the output at dir/<dataset>_summary<ext>.
func (b *ExportBuilder) WithDefaultFilename(dir, dataset string) *ExportBuilder {
	b.filePath = DefaultPath(dir, dataset, b.format)
	b.useWriter = false
	return b
}

// Build creates an Options struct from the builder's configuration.
func (b *ExportBuilder) Build() Options {
	return Options{
		Format:         b.format,
		FilePath:       b.filePath,
		PrettyJSON:     b.prettyJSON,
		Overwrite:      b.overwrite,
		FloatPrecision: b.floatPrecision,
	}
}

// Export executes the export operation with the configured settings.
func (b *ExportBuilder) Export(table *models.DeckSummaryTable) error {
	if err := b.validate(); err != nil {
		return err
	}

	if b.useWriter {
		return ExportToWriter(b.writer, b.format, table, b.prettyJSON, b.floatPrecision)
	}
	return NewExporter(b.Build()).Export(table)
}

func (b *ExportBuilder) validate() error {
	if b.useWriter && b.writer == nil {
		return fmt.Errorf("writer is nil")
	}
	if !b.useWriter && b.filePath == "" {
		return fmt.Errorf("either file path or writer must be set")
	}

	switch b.format {
	case FormatCSV, FormatJSON, FormatColumnar, FormatColumnarSnappy, FormatParquet:
	default:
		return fmt.Errorf("unsupported export format: %s", b.format)
	}
	return nil
}

package tablefile

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format names an on-disk table encoding.
type Format string

const (
	FormatCSV            Format = "csv"
	FormatColumnar       Format = "columnar"
	FormatColumnarSnappy Format = "columnar-snappy"
	FormatParquet        Format = "parquet"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatColumnar, FormatColumnarSnappy, FormatParquet}

// ParseFormat validates a format name. The empty string selects
// FormatColumnarSnappy.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return FormatColumnarSnappy, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatColumnar, "feather":
		return FormatColumnar, nil
	case FormatColumnarSnappy:
		return FormatColumnarSnappy, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported table format: %s", s)
	}
}

// Ext returns the file extension used for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatColumnar:
		return ".col"
	case FormatColumnarSnappy:
		return ".colz"
	case FormatParquet:
		return ".parquet"
	default:
		return ""
	}
}

// Columnar reports whether the format is one of the columnar encodings.
func (f Format) Columnar() bool {
	return f == FormatColumnar || f == FormatColumnarSnappy || f == FormatParquet
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".col":
		return FormatColumnar, true
	case ".colz":
		return FormatColumnarSnappy, true
	case ".parquet":
		return FormatParquet, true
	default:
		return "", false
	}
}

// EncodeTable writes frame to w in one of the columnar formats.
func EncodeTable(w io.Writer, format Format, frame *Frame) error {
	switch format {
	case FormatColumnar, FormatColumnarSnappy:
		return EncodeColumnar(w, frame, format == FormatColumnarSnappy)
	case FormatParquet:
		return EncodeParquet(w, frame)
	default:
		return fmt.Errorf("%s is not a columnar format", format)
	}
}

// WriteTable atomically writes frame to path in one of the columnar formats.
func WriteTable(path string, format Format, frame *Frame) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return EncodeTable(w, format, frame)
	})
}

// InspectTable reads the schema and metadata of a columnar or parquet file,
// choosing the decoder from the file extension.
func InspectTable(path string) (*Info, error) {
	if format, _ := FormatForPath(path); format == FormatParquet {
		return InspectParquet(path)
	}
	return InspectColumnar(path)
}

// ReadTable reads a columnar or parquet file, choosing the decoder from the
// file extension. names projects columns as in ReadColumnar.
func ReadTable(path string, names ...string) (*Frame, error) {
	if format, _ := FormatForPath(path); format == FormatParquet {
		return ReadParquet(path, names...)
	}
	return ReadColumnar(path, names...)
}

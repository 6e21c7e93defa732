package tablefile

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVOptions controls how typed values are rendered as text.
type CSVOptions struct {
	// FloatPrecision is the number of decimals for float columns. Negative
	// means the shortest exact representation.
	FloatPrecision int
}

// DefaultCSVOptions returns options that round floats to six decimals.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{FloatPrecision: 6}
}

// WriteCSV writes frame to path as CSV with a header row.
func WriteCSV(path string, frame *Frame, opts CSVOptions) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return EncodeCSV(w, frame, opts)
	})
}

// EncodeCSV writes frame to w as CSV with a header row. String-list values
// are written as JSON arrays.
func EncodeCSV(w io.Writer, frame *Frame, opts CSVOptions) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(frame.Names()); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	cols := frame.Columns()
	record := make([]string, len(cols))
	for row := 0; row < frame.Rows(); row++ {
		for i, c := range cols {
			v, err := formatCell(c, row, opts)
			if err != nil {
				return err
			}
			record[i] = v
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row %d: %w", row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(c *Column, row int, opts CSVOptions) (string, error) {
	switch c.Kind {
	case KindString:
		return c.Strings[row], nil
	case KindBool:
		return strconv.FormatBool(c.Bools[row]), nil
	case KindUint8:
		return strconv.Itoa(int(c.Uint8s[row])), nil
	case KindInt64:
		return strconv.FormatInt(c.Int64s[row], 10), nil
	case KindFloat64:
		return strconv.FormatFloat(c.Float64s[row], 'f', opts.FloatPrecision, 64), nil
	case KindStringList:
		list := c.Lists[row]
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return "", fmt.Errorf("encode column %q row %d: %w", c.Name, row, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("column %q has unknown kind %d", c.Name, c.Kind)
	}
}

// ReadCSVFile reads a CSV file with a header row into a frame of string
// columns.
func ReadCSVFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame, nil
}

// ReadCSV reads CSV with a header row into a frame of string columns. Short
// rows are padded with empty values and long rows truncated.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return NewFrame(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	values := make([][]string, len(header))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i := range header {
			var v string
			if i < len(row) {
				v = row[i]
			}
			values[i] = append(values[i], v)
		}
	}

	frame := NewFrame()
	for i, name := range header {
		col := values[i]
		if col == nil {
			col = []string{}
		}
		if err := frame.Add(StringColumn(name, col)); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func trimBOM(s string) string {
	const bom = "\uFEFF"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

package tablefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

// Parquet files written here carry the frame's column order and metadata as
// key/value metadata, since parquet groups sort their fields by name. Files
// without those keys (written by other tools) are read with kinds inferred
// from the physical types.
const (
	parquetColumnsKey = "deckstats.columns"
	parquetMetaKey    = "deckstats.meta"
	parquetBatchRows  = 1024
)

type parquetColumn struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

func parquetNode(k Kind) (parquet.Node, error) {
	switch k {
	case KindString:
		return parquet.String(), nil
	case KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case KindUint8:
		return parquet.Uint(8), nil
	case KindInt64:
		return parquet.Int(64), nil
	case KindFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	case KindStringList:
		return parquet.Repeated(parquet.String()), nil
	default:
		return nil, fmt.Errorf("unsupported column kind %s", k)
	}
}

// WriteParquet writes frame to path as a snappy-compressed parquet file.
func WriteParquet(path string, frame *Frame) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return EncodeParquet(w, frame)
	})
}

// EncodeParquet writes frame to w as a snappy-compressed parquet file.
func EncodeParquet(w io.Writer, frame *Frame) error {
	if len(frame.Columns()) == 0 {
		return fmt.Errorf("cannot write a parquet file with no columns")
	}

	group := make(parquet.Group, len(frame.Columns()))
	layout := make([]parquetColumn, 0, len(frame.Columns()))
	for _, col := range frame.Columns() {
		node, err := parquetNode(col.Kind)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
		group[col.Name] = node
		layout = append(layout, parquetColumn{Name: col.Name, Kind: col.Kind})
	}
	schema := parquet.NewSchema("deckstats", group)

	// Leaf index of every frame column in the schema's sorted order.
	leaves := make([]*Column, len(schema.Columns()))
	for i, path := range schema.Columns() {
		col, ok := frame.Column(path[0])
		if !ok {
			return fmt.Errorf("schema column %q not in frame", path[0])
		}
		leaves[i] = col
	}

	columns, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(frame.Meta)
	if err != nil {
		return err
	}

	pw := parquet.NewWriter(w, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(parquetColumnsKey, string(columns)),
		parquet.KeyValueMetadata(parquetMetaKey, string(meta)),
	)

	batch := make([]parquet.Row, 0, parquetBatchRows)
	for r := 0; r < frame.Rows(); r++ {
		row := make(parquet.Row, 0, len(leaves))
		for i, col := range leaves {
			row = appendParquetValues(row, col, r, i)
		}
		batch = append(batch, row)
		if len(batch) == parquetBatchRows {
			if _, err := pw.WriteRows(batch); err != nil {
				return fmt.Errorf("failed to write parquet rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := pw.WriteRows(batch); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func appendParquetValues(row parquet.Row, col *Column, r, leaf int) parquet.Row {
	switch col.Kind {
	case KindString:
		return append(row, parquet.ByteArrayValue([]byte(col.Strings[r])).Level(0, 0, leaf))
	case KindBool:
		return append(row, parquet.BooleanValue(col.Bools[r]).Level(0, 0, leaf))
	case KindUint8:
		return append(row, parquet.Int32Value(int32(col.Uint8s[r])).Level(0, 0, leaf))
	case KindInt64:
		return append(row, parquet.Int64Value(col.Int64s[r]).Level(0, 0, leaf))
	case KindFloat64:
		return append(row, parquet.DoubleValue(col.Float64s[r]).Level(0, 0, leaf))
	case KindStringList:
		list := col.Lists[r]
		if len(list) == 0 {
			return append(row, parquet.Value{}.Level(0, 0, leaf))
		}
		for j, s := range list {
			rep := 1
			if j == 0 {
				rep = 0
			}
			row = append(row, parquet.ByteArrayValue([]byte(s)).Level(rep, 1, leaf))
		}
	}
	return row
}

type parquetFile struct {
	path   string
	f      *os.File
	file   *parquet.File
	layout []parquetColumn
	leaf   map[string]int
	meta   map[string]string
}

func openParquet(path string) (*parquetFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	file, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, corrupt(path, "%v", err)
	}

	pf := &parquetFile{path: path, f: f, file: file, leaf: make(map[string]int), meta: map[string]string{}}
	if err := pf.readLayout(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return pf, nil
}

func (pf *parquetFile) Close() error {
	return pf.f.Close()
}

func (pf *parquetFile) readLayout() error {
	for i, path := range pf.file.Schema().Columns() {
		if len(path) != 1 {
			return fmt.Errorf("%s: nested column %v is not supported", pf.path, path)
		}
		pf.leaf[path[0]] = i
	}

	if raw, ok := pf.file.Lookup(parquetMetaKey); ok {
		if err := json.Unmarshal([]byte(raw), &pf.meta); err != nil {
			return corrupt(pf.path, "invalid metadata: %v", err)
		}
	}

	if raw, ok := pf.file.Lookup(parquetColumnsKey); ok {
		if err := json.Unmarshal([]byte(raw), &pf.layout); err != nil {
			return corrupt(pf.path, "invalid column layout: %v", err)
		}
		if len(pf.layout) != len(pf.leaf) {
			return corrupt(pf.path, "layout lists %d columns, schema has %d", len(pf.layout), len(pf.leaf))
		}
		for _, c := range pf.layout {
			if _, ok := pf.leaf[c.Name]; !ok {
				return corrupt(pf.path, "layout column %q not in schema", c.Name)
			}
		}
		return nil
	}

	for _, field := range pf.file.Schema().Fields() {
		kind, err := inferParquetKind(field)
		if err != nil {
			return fmt.Errorf("%s: %w", pf.path, err)
		}
		pf.layout = append(pf.layout, parquetColumn{Name: field.Name(), Kind: kind})
	}
	return nil
}

func inferParquetKind(field parquet.Field) (Kind, error) {
	if !field.Leaf() {
		return 0, fmt.Errorf("column %q is nested", field.Name())
	}

	var kind Kind
	t := field.Type()
	switch t.Kind() {
	case parquet.Boolean:
		kind = KindBool
	case parquet.Int32:
		kind = KindInt64
		if lt := t.LogicalType(); lt != nil && lt.Integer != nil && lt.Integer.BitWidth == 8 && !lt.Integer.IsSigned {
			kind = KindUint8
		}
	case parquet.Int64:
		kind = KindInt64
	case parquet.Float, parquet.Double:
		kind = KindFloat64
	case parquet.ByteArray:
		kind = KindString
	default:
		return 0, fmt.Errorf("column %q has unsupported type %s", field.Name(), t)
	}

	if field.Repeated() {
		if kind != KindString {
			return 0, fmt.Errorf("repeated column %q must hold strings", field.Name())
		}
		kind = KindStringList
	}
	return kind, nil
}

// InspectParquet reads the schema and metadata of a parquet file.
func InspectParquet(path string) (*Info, error) {
	pf, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pf.Close() }()

	info := &Info{
		Rows:       int(pf.file.NumRows()),
		Compressed: true,
		Kinds:      make(map[string]Kind, len(pf.layout)),
		Meta:       pf.meta,
	}
	for _, c := range pf.layout {
		info.Names = append(info.Names, c.Name)
		info.Kinds[c.Name] = c.Kind
	}
	return info, nil
}

// ReadParquet reads a parquet file with the same projection rules as
// ReadColumnar. Null scalars read back as zero values.
func ReadParquet(path string, names ...string) (*Frame, error) {
	pf, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pf.Close() }()

	wanted := pf.layout
	if len(names) > 0 {
		byName := make(map[string]parquetColumn, len(pf.layout))
		for _, c := range pf.layout {
			byName[c.Name] = c
		}
		wanted = make([]parquetColumn, 0, len(names))
		for _, name := range names {
			c, ok := byName[name]
			if !ok {
				return nil, dataerr.MissingColumn(path, name)
			}
			wanted = append(wanted, c)
		}
	}

	rows := int(pf.file.NumRows())
	cols := make([]*Column, len(wanted))
	byLeaf := make(map[int]*Column, len(wanted))
	for i, c := range wanted {
		cols[i] = newSizedColumn(c.Name, c.Kind, rows)
		byLeaf[pf.leaf[c.Name]] = cols[i]
	}

	r := 0
	buf := make([]parquet.Row, parquetBatchRows)
	for _, rg := range pf.file.RowGroups() {
		reader := rg.Rows()
		for {
			n, err := reader.ReadRows(buf)
			for _, row := range buf[:n] {
				if r >= rows {
					_ = reader.Close()
					return nil, corrupt(path, "more rows than the footer's %d", rows)
				}
				decodeParquetRow(row, byLeaf, r)
				r++
			}
			if errors.Is(err, io.EOF) || (err == nil && n == 0) {
				break
			}
			if err != nil {
				_ = reader.Close()
				return nil, corrupt(path, "%v", err)
			}
		}
		if err := reader.Close(); err != nil {
			return nil, fmt.Errorf("failed to close row group reader: %w", err)
		}
	}
	if r != rows {
		return nil, corrupt(path, "read %d rows, footer says %d", r, rows)
	}

	frame := NewFrame()
	for k, v := range pf.meta {
		frame.Meta[k] = v
	}
	for _, col := range cols {
		if err := frame.Add(col); err != nil {
			return nil, corrupt(path, "%v", err)
		}
	}
	if len(cols) == 0 {
		frame.rows = rows
	}
	return frame, nil
}

func newSizedColumn(name string, kind Kind, rows int) *Column {
	col := &Column{Name: name, Kind: kind}
	switch kind {
	case KindString:
		col.Strings = make([]string, rows)
	case KindBool:
		col.Bools = make([]bool, rows)
	case KindUint8:
		col.Uint8s = make([]uint8, rows)
	case KindInt64:
		col.Int64s = make([]int64, rows)
	case KindFloat64:
		col.Float64s = make([]float64, rows)
	case KindStringList:
		col.Lists = make([][]string, rows)
	}
	return col
}

func decodeParquetRow(row parquet.Row, byLeaf map[int]*Column, r int) {
	for _, v := range row {
		col, ok := byLeaf[v.Column()]
		if !ok {
			continue
		}
		if col.Kind == KindStringList {
			if col.Lists[r] == nil {
				col.Lists[r] = []string{}
			}
			if !v.IsNull() {
				col.Lists[r] = append(col.Lists[r], string(v.ByteArray()))
			}
			continue
		}
		if v.IsNull() {
			continue
		}
		switch col.Kind {
		case KindString:
			col.Strings[r] = string(v.ByteArray())
		case KindBool:
			col.Bools[r] = v.Boolean()
		case KindUint8:
			col.Uint8s[r] = uint8(v.Int32())
		case KindInt64:
			if v.Kind() == parquet.Int32 {
				col.Int64s[r] = int64(v.Int32())
			} else {
				col.Int64s[r] = v.Int64()
			}
		case KindFloat64:
			if v.Kind() == parquet.Float {
				col.Float64s[r] = float64(v.Float())
			} else {
				col.Float64s[r] = v.Double()
			}
		}
	}
}

// Package tablefile stores column-oriented tables on disk.
//
// A Frame is a set of equally long typed columns plus string metadata. It can
// be written as CSV, as parquet, or in a columnar binary layout, optionally
// snappy compressed. The binary formats support reading a subset of columns.
// All writers replace their target atomically.
package tablefile

import (
	"fmt"
	"strings"
)

// Kind is the value type of a column.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindBool
	KindUint8
	KindInt64
	KindFloat64
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindUint8:
		return "uint8"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindStringList:
		return "string_list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is one named, typed column. Only the slice matching Kind is set.
type Column struct {
	Name     string
	Kind     Kind
	Strings  []string
	Bools    []bool
	Uint8s   []uint8
	Int64s   []int64
	Float64s []float64
	Lists    [][]string
}

// StringColumn returns a string column.
func StringColumn(name string, v []string) *Column {
	return &Column{Name: name, Kind: KindString, Strings: v}
}

// BoolColumn returns a bool column.
func BoolColumn(name string, v []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: v}
}

// Uint8Column returns a uint8 column.
func Uint8Column(name string, v []uint8) *Column {
	return &Column{Name: name, Kind: KindUint8, Uint8s: v}
}

// Int64Column returns an int64 column.
func Int64Column(name string, v []int64) *Column {
	return &Column{Name: name, Kind: KindInt64, Int64s: v}
}

// Float64Column returns a float64 column.
func Float64Column(name string, v []float64) *Column {
	return &Column{Name: name, Kind: KindFloat64, Float64s: v}
}

// StringListColumn returns a column of string lists.
func StringListColumn(name string, v [][]string) *Column {
	return &Column{Name: name, Kind: KindStringList, Lists: v}
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindString:
		return len(c.Strings)
	case KindBool:
		return len(c.Bools)
	case KindUint8:
		return len(c.Uint8s)
	case KindInt64:
		return len(c.Int64s)
	case KindFloat64:
		return len(c.Float64s)
	case KindStringList:
		return len(c.Lists)
	default:
		return 0
	}
}

// Frame is an ordered set of columns of equal length.
type Frame struct {
	Meta map[string]string

	columns []*Column
	index   map[string]int
	rows    int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{
		Meta:  make(map[string]string),
		index: make(map[string]int),
	}
}

// Add appends a column. Names must be unique and every column must have the
// same length as the first one added.
func (f *Frame) Add(c *Column) error {
	if c.Name == "" {
		return fmt.Errorf("column name is empty")
	}
	if _, exists := f.index[c.Name]; exists {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if c.Kind < KindString || c.Kind > KindStringList {
		return fmt.Errorf("column %q has unknown kind %d", c.Name, c.Kind)
	}
	if len(f.columns) == 0 {
		f.rows = c.Len()
	} else if c.Len() != f.rows {
		return fmt.Errorf("column %q has %d rows, frame has %d", c.Name, c.Len(), f.rows)
	}

	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// MustAdd is Add for frames assembled from values already known to be
// consistent. It panics on error.
func (f *Frame) MustAdd(c *Column) *Frame {
	if err := f.Add(c); err != nil {
		panic(err)
	}
	return f
}

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Columns returns the columns in order. Callers must not modify the slice.
func (f *Frame) Columns() []*Column { return f.columns }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// NamesWithPrefix returns the names of all columns starting with prefix, in
// frame order.
func (f *Frame) NamesWithPrefix(prefix string) []string {
	var names []string
	for _, c := range f.columns {
		if strings.HasPrefix(c.Name, prefix) {
			names = append(names, c.Name)
		}
	}
	return names
}

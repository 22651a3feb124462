// Package dataset holds the in-memory tabular model shared by the filter
// engine, the panel builder and the file codecs.
//
// A Dataset is an ordered list of uniquely named, typed columns of equal
// length. Datasets and columns behave as values: every transforming
// operation returns a new Dataset and leaves its receiver untouched, so a
// session can keep a pristine original next to a filtered working copy.
package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RC-CHN/CHARLS-FILTER/internal/bitmap"
)

var (
	// ErrDuplicateColumnName is returned when two columns would share a name.
	ErrDuplicateColumnName = errors.New("duplicate column name")
	// ErrLengthMismatch is returned when columns of different lengths are combined.
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrInvalidValue is returned when a cell does not fit its column kind.
	ErrInvalidValue = errors.New("invalid value")
)

// Dataset is an immutable table of named columns.
type Dataset struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a dataset from cols. Names must be unique and all columns must
// have the same length.
func New(cols ...*Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := ds.index[c.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumnName, c.name)
		}
		if i == 0 {
			ds.rows = c.Len()
		} else if c.Len() != ds.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), ds.rows)
		}
		ds.index[c.name] = i
		ds.cols = append(ds.cols, c)
	}
	return ds, nil
}

// MustNew is like New but panics on error.
func MustNew(cols ...*Column) *Dataset {
	ds, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return ds
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return d.rows }

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.cols) }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether a column named name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column looks a column up by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// ColumnAt returns the i-th column.
func (d *Dataset) ColumnAt(i int) *Column { return d.cols[i] }

// Columns returns the columns in order. The slice is a copy; the columns are
// shared and immutable.
func (d *Dataset) Columns() []*Column { return append([]*Column(nil), d.cols...) }

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.values[i]
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.clone()
	}
	return d.derive(cols, d.rows)
}

// Keep returns the rows whose bit is set in mask, in their original order.
// Bits beyond the dataset length are ignored.
func (d *Dataset) Keep(mask *bitmap.Bitmap) *Dataset {
	rows := make([]int, 0, mask.Count())
	for _, r := range mask.Rows() {
		if r < d.rows {
			rows = append(rows, r)
		}
	}
	return d.Take(rows)
}

// Take returns a dataset whose i-th row is row rows[i] of d. Negative indexes
// produce an all-missing row; repeated indexes repeat rows.
func (d *Dataset) Take(rows []int) *Dataset {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.take(rows)
	}
	return d.derive(cols, len(rows))
}

// Select returns the named columns in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := d.Column(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Rename applies old→new name mappings. Unknown old names are ignored. A
// rename that would leave two columns with the same name fails with
// ErrDuplicateColumnName.
func (d *Dataset) Rename(mapping map[string]string) (*Dataset, error) {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		if to, ok := mapping[c.name]; ok && to != c.name {
			cols[i] = c.WithName(to)
			continue
		}
		cols[i] = c
	}
	return New(cols...)
}

// WithColumn replaces the column with the same name, or appends c when no
// such column exists.
func (d *Dataset) WithColumn(c *Column) (*Dataset, error) {
	if c.Len() != d.rows && len(d.cols) > 0 {
		return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), d.rows)
	}
	cols := d.Columns()
	if i, ok := d.index[c.name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// AddColumns appends cols after the existing columns.
func (d *Dataset) AddColumns(cols ...*Column) (*Dataset, error) {
	return New(append(d.Columns(), cols...)...)
}

// Equal reports whether both datasets have the same column names, kinds and
// cells in the same order. Labels and levels are metadata and not compared.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.rows != o.rows || len(d.cols) != len(o.cols) {
		return false
	}
	for i, c := range d.cols {
		oc := o.cols[i]
		if c.name != oc.name || c.kind != oc.kind {
			return false
		}
		for r := range c.values {
			if c.values[r] != oc.values[r] {
				return false
			}
		}
	}
	return true
}

// String renders a short description for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset{rows=%d cols=[%s]}", d.rows, strings.Join(d.Names(), ","))
}

func (d *Dataset) derive(cols []*Column, rows int) *Dataset {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.name] = i
	}
	return &Dataset{cols: cols, index: idx, rows: rows}
}

// Package dataset provides an in-memory column-oriented table for mixed
// numeric and categorical data, with CSV ingestion and type inference.
//
// A Table is the unit of data flowing through the pipeline: the loader
// produces one, the cleaner and recipe steps transform it, and model fitting
// consumes its numeric view as a gonum matrix.
package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/pkg/errors"
)

// ColumnKind distinguishes numeric from categorical (string) columns.
type ColumnKind int

const (
	// Numeric columns store float64 values; NaN marks a missing cell.
	Numeric ColumnKind = iota
	// String columns store text values; the empty string marks a missing cell.
	String
)

// Column is a single named column. Exactly one of Nums or Strs is populated,
// according to Kind.
type Column struct {
	Name string
	Kind ColumnKind
	Nums []float64
	Strs []string
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// IsMissing reports whether the cell at row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Nums[i])
	}
	return c.Strs[i] == ""
}

// clone returns a deep copy of the column.
func (c *Column) clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Nums = make([]float64, len(c.Nums))
		copy(out.Nums, c.Nums)
	} else {
		out.Strs = make([]string, len(c.Strs))
		copy(out.Strs, c.Strs)
	}
	return out
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	cols  []Column
	index map[string]int
}

// New creates a table from columns. All columns must have equal length and
// distinct names.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := t.add(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(c Column) error {
	if _, dup := t.index[c.Name]; dup {
		return errors.NewValidationError("column", "duplicate column name", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return errors.NewDimensionError("Table", t.NumRows(), c.Len(), 0)
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table contains a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the column with the given name. The returned pointer aliases
// the table's storage.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrMissingColumn, "column %q", name)
	}
	return &t.cols[i], nil
}

// Columns returns all columns in order, aliasing the table's storage.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	for i := range t.cols {
		out[i] = &t.cols[i]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		cols:  make([]Column, len(t.cols)),
		index: make(map[string]int, len(t.index)),
	}
	for i := range t.cols {
		out.cols[i] = t.cols[i].clone()
		out.index[t.cols[i].Name] = i
	}
	return out
}

// Drop returns a copy of the table without the named column.
func (t *Table) Drop(name string) (*Table, error) {
	if !t.Has(name) {
		return nil, errors.Wrapf(errors.ErrMissingColumn, "column %q", name)
	}
	out := &Table{index: make(map[string]int)}
	for i := range t.cols {
		if t.cols[i].Name == name {
			continue
		}
		if err := out.add(t.cols[i].clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Append returns a copy of the table with an extra column.
func (t *Table) Append(c Column) (*Table, error) {
	out := t.Clone()
	if err := out.add(c); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectRows returns a new table containing the given rows in order.
// Indices may repeat (bootstrap sampling) and are not required to be sorted.
func (t *Table) SelectRows(indices []int) *Table {
	out := &Table{
		cols:  make([]Column, len(t.cols)),
		index: make(map[string]int, len(t.index)),
	}
	for ci := range t.cols {
		src := &t.cols[ci]
		dst := Column{Name: src.Name, Kind: src.Kind}
		if src.Kind == Numeric {
			dst.Nums = make([]float64, len(indices))
			for i, ri := range indices {
				dst.Nums[i] = src.Nums[ri]
			}
		} else {
			dst.Strs = make([]string, len(indices))
			for i, ri := range indices {
				dst.Strs[i] = src.Strs[ri]
			}
		}
		out.cols[ci] = dst
		out.index[dst.Name] = ci
	}
	return out
}

// RowMissing reports whether any cell in row i is missing.
func (t *Table) RowMissing(i int) bool {
	for ci := range t.cols {
		if t.cols[ci].IsMissing(i) {
			return true
		}
	}
	return false
}

// DropMissing returns a table containing only complete rows, along with the
// number of rows removed.
func (t *Table) DropMissing() (*Table, int) {
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if !t.RowMissing(i) {
			keep = append(keep, i)
		}
	}
	return t.SelectRows(keep), t.NumRows() - len(keep)
}

// Matrix assembles the named numeric columns into a dense matrix, one column
// per name in order. String columns cause a ValidationError.
func (t *Table) Matrix(names []string) (*mat.Dense, error) {
	rows := t.NumRows()
	m := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if c.Kind != Numeric {
			return nil, errors.NewValidationError("column", "not numeric", name)
		}
		for i := 0; i < rows; i++ {
			m.Set(i, j, c.Nums[i])
		}
	}
	return m, nil
}

// NumericMatrix assembles every numeric column, in table order, into a dense
// matrix and returns the column names used.
func (t *Table) NumericMatrix() (*mat.Dense, []string, error) {
	names := make([]string, 0, len(t.cols))
	for i := range t.cols {
		if t.cols[i].Kind == Numeric {
			names = append(names, t.cols[i].Name)
		}
	}
	if len(names) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "no numeric columns")
	}
	m, err := t.Matrix(names)
	return m, names, err
}

// Vector extracts a numeric column as a vector.
func (t *Table) Vector(name string) (*mat.VecDense, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Numeric {
		return nil, errors.NewValidationError("column", "not numeric", name)
	}
	v := mat.NewVecDense(len(c.Nums), nil)
	for i, x := range c.Nums {
		v.SetVec(i, x)
	}
	return v, nil
}

// Levels returns the distinct non-missing values of a string column together
// with their counts.
func (t *Table) Levels(name string) (map[string]int, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != String {
		return nil, errors.NewValidationError("column", "not a string column", name)
	}
	counts := make(map[string]int)
	for i, s := range c.Strs {
		if c.IsMissing(i) {
			continue
		}
		counts[s]++
	}
	return counts, nil
}

package dataset

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/pkg/errors"
)

// Column is a named vector of values. Columns are never modified after they
// are attached to a Dataset; transforms build new columns instead.
type Column struct {
	Name   string
	Values []Value
}

// NewColumn creates a column.
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Values: values}
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	return len(c.Values)
}

// Dataset is an immutable, column-major table. Every mutation returns a new
// Dataset that shares unchanged columns with its parent.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a dataset from columns of equal length.
func New(columns []*Column) (*Dataset, error) {
	ds := &Dataset{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col == nil {
			return nil, errors.NewValidationError(errors.CodeInvalidInput, fmt.Sprintf("column %d is nil", i))
		}
		if _, dup := ds.index[col.Name]; dup {
			return nil, errors.NewValidationError(errors.CodeInvalidInput, fmt.Sprintf("duplicate column %q", col.Name))
		}
		if i == 0 {
			ds.rows = col.Len()
		} else if col.Len() != ds.rows {
			return nil, errors.WrapError(errors.ErrRaggedRecord, errors.ErrorTypeValidation, errors.CodeInvalidInput,
				fmt.Sprintf("column %q has %d values, expected %d", col.Name, col.Len(), ds.rows))
		}
		ds.index[col.Name] = i
	}
	return ds, nil
}

// FromRows builds a dataset from a header and row-major values.
func FromRows(header []string, rows [][]Value) (*Dataset, error) {
	columns := make([]*Column, len(header))
	for i, name := range header {
		columns[i] = &Column{Name: name, Values: make([]Value, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(header) {
			return nil, errors.WrapError(errors.ErrRaggedRecord, errors.ErrorTypeValidation, errors.CodeInvalidInput,
				fmt.Sprintf("row %d has %d values, expected %d", r+1, len(row), len(header)))
		}
		for c, v := range row {
			columns[c].Values[r] = v
		}
	}
	return New(columns)
}

// Rows returns the row count.
func (d *Dataset) Rows() int {
	return d.rows
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	return lo.Map(d.columns, func(c *Column, _ int) string { return c.Name })
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Record returns a row view.
func (d *Dataset) Record(row int) Record {
	values := make([]Value, len(d.columns))
	for i, col := range d.columns {
		values[i] = col.Values[row]
	}
	return Record{columns: d.ColumnNames(), values: values}
}

// Records returns all rows in order.
func (d *Dataset) Records() []Record {
	names := d.ColumnNames()
	records := make([]Record, d.rows)
	for r := 0; r < d.rows; r++ {
		values := make([]Value, len(d.columns))
		for i, col := range d.columns {
			values[i] = col.Values[r]
		}
		records[r] = Record{columns: names, values: values}
	}
	return records
}

// Tuple returns the values of the given columns at row, in the given order.
func (d *Dataset) Tuple(row int, columns []*Column) []Value {
	values := make([]Value, len(columns))
	for i, col := range columns {
		values[i] = col.Values[row]
	}
	return values
}

// SelectRows returns a dataset with only the given rows, in the given order.
func (d *Dataset) SelectRows(rows []int) *Dataset {
	columns := make([]*Column, len(d.columns))
	for i, col := range d.columns {
		values := make([]Value, len(rows))
		for j, r := range rows {
			values[j] = col.Values[r]
		}
		columns[i] = &Column{Name: col.Name, Values: values}
	}
	return &Dataset{columns: columns, index: d.index, rows: len(rows)}
}

// WithColumn replaces the column of the same name or appends it.
func (d *Dataset) WithColumn(col *Column) (*Dataset, error) {
	columns := make([]*Column, len(d.columns), len(d.columns)+1)
	copy(columns, d.columns)
	if i, ok := d.index[col.Name]; ok {
		columns[i] = col
	} else {
		columns = append(columns, col)
	}
	return New(columns)
}

// WithoutColumns drops the named columns. Unknown names are ignored.
func (d *Dataset) WithoutColumns(names ...string) *Dataset {
	columns := lo.Reject(d.columns, func(c *Column, _ int) bool { return lo.Contains(names, c.Name) })
	ds, _ := New(columns)
	return ds
}

// Apply returns a new dataset with the patch applied.
func (d *Dataset) Apply(p *Patch) (*Dataset, error) {
	if p == nil || p.Empty() {
		return d, nil
	}
	for name := range p.Replace {
		if !d.HasColumn(name) {
			return nil, errors.NewPreconditionError(errors.CodeUnknownColumn, errors.ErrUnknownColumn).
				WithDetails(fmt.Sprintf("cannot replace missing column %q", name))
		}
	}
	columns := make([]*Column, 0, len(d.columns)+len(p.Append))
	for _, col := range d.columns {
		if repl, ok := p.Replace[col.Name]; ok {
			columns = append(columns, repl)
			continue
		}
		if lo.Contains(p.Drop, col.Name) {
			continue
		}
		columns = append(columns, col)
	}
	columns = append(columns, p.Append...)
	return New(columns)
}

package dataset

// Record is an ordered mapping from column name to value for one row.
type Record struct {
	columns []string
	values  []Value
}

// NewRecord builds a record; columns and values must have equal length.
func NewRecord(columns []string, values []Value) Record {
	return Record{columns: columns, values: values}
}

func (r Record) Columns() []string { return r.columns }
func (r Record) Values() []Value   { return r.values }

// Get returns the value of the named column.
func (r Record) Get(name string) (Value, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

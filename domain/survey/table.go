package survey

import (
	"fmt"

	"crosstab/domain/core"
)

// RespondentTable is the survey dataset: column-addressable with a row
// count fixed at load time. It is shared by reference across every
// segment and question; consumers take index sets and column slices,
// never copies of the table.
type RespondentTable struct {
	columns []string
	index   map[string]int
	data    [][]core.Value // column-major: data[col][row]
	rows    int
}

// NewRespondentTable builds a table from ordered columns and
// column-major data. Every column must have the same length.
func NewRespondentTable(columns []string, data [][]core.Value) (*RespondentTable, error) {
	if len(columns) != len(data) {
		return nil, fmt.Errorf("column count %d does not match data column count %d", len(columns), len(data))
	}
	rows := 0
	if len(data) > 0 {
		rows = len(data[0])
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if len(data[i]) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(data[i]), rows)
		}
		index[name] = i
	}
	return &RespondentTable{
		columns: columns,
		index:   index,
		data:    data,
		rows:    rows,
	}, nil
}

// RowCount returns the fixed number of respondent rows.
func (t *RespondentTable) RowCount() int {
	return t.rows
}

// Columns returns the ordered column names.
func (t *RespondentTable) Columns() []string {
	return t.columns
}

// HasColumn reports whether a column exists.
func (t *RespondentTable) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the shared value slice for a column. Callers must
// treat it as read-only.
func (t *RespondentTable) Column(name string) ([]core.Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.data[i], true
}

// Cell returns one value by column name and row index.
func (t *RespondentTable) Cell(name string, row int) (core.Value, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return core.Missing(), false
	}
	return t.data[i][row], true
}

// AllRows returns the full row index range [0, RowCount).
func (t *RespondentTable) AllRows() []int {
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

package result

// Cell is one named column value inside a row.
type Cell struct {
	Column string
	Value  string
}

// Row is an ordered sequence of cells. Column order matches the order the
// query backend returned them, which downstream formatting relies on.
type Row []Cell

// Columns returns the column names in row order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// Value looks up a cell value by column name.
func (r Row) Value(column string) (string, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// Point is one datum for chart rendering.
type Point struct {
	Label string
	Value float64
}

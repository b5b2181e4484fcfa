// Package survey holds the tabular types every pipeline stage passes around.
package survey

import (
	"sort"
)

// Row is one survey submission keyed by column name
type Row map[string]string

// Table is an ordered set of columns over string-valued rows
type Table struct {
	Headers []string // Column order as it appears in the artifact
	Rows    []Row
}

// NewTable creates an empty table with the given headers
func NewTable(headers ...string) *Table {
	return &Table{Headers: append([]string(nil), headers...)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether a header exists verbatim
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a header if it is not already present
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Headers = append(t.Headers, name)
	}
}

// Append adds a row; keys outside Headers are kept but not written out
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Values returns the column values in row order
func (t *Table) Values(column string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[column]
	}
	return values
}

// Clone returns a deep copy so stages never mutate their input
func (t *Table) Clone() *Table {
	out := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out.Rows[i] = copied
	}
	return out
}

// Filter returns a new table holding the rows keep accepts
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// DropColumns removes the named columns; names that do not exist are ignored.
// It returns the names that were actually removed.
func (t *Table) DropColumns(names ...string) []string {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var removed []string
	kept := t.Headers[:0:0]
	for _, h := range t.Headers {
		if drop[h] {
			removed = append(removed, h)
			continue
		}
		kept = append(kept, h)
	}
	t.Headers = kept

	for _, row := range t.Rows {
		for _, n := range removed {
			delete(row, n)
		}
	}
	return removed
}

// RenameColumns applies rename to every header. When two headers collapse onto
// the same name the first one keeps it and later ones are left untouched.
func (t *Table) RenameColumns(rename func(string) string) {
	seen := make(map[string]bool, len(t.Headers))
	mapping := make(map[string]string, len(t.Headers))
	for i, h := range t.Headers {
		renamed := rename(h)
		if renamed == h || seen[renamed] || t.HasColumn(renamed) {
			seen[h] = true
			continue
		}
		seen[renamed] = true
		mapping[h] = renamed
		t.Headers[i] = renamed
	}
	if len(mapping) == 0 {
		return
	}
	for _, row := range t.Rows {
		for from, to := range mapping {
			if v, ok := row[from]; ok {
				delete(row, from)
				row[to] = v
			}
		}
	}
}

// SortStable orders rows with less, keeping the relative order of equal rows
func (t *Table) SortStable(less func(a, b Row) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Records flattens the table into a header row followed by value rows
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, append([]string(nil), t.Headers...))
	for _, row := range t.Rows {
		record := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			record[i] = row[h]
		}
		records = append(records, record)
	}
	return records
}

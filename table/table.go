package table

import (
	"fmt"
	"regexp"
	"strings"
)

var spaceRE = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace and lowercases for header/cell matching.
func Normalize(s string) string {
	return strings.ToLower(spaceRE.ReplaceAllString(strings.TrimSpace(s), " "))
}

// Table is the structured substrate all table actions operate on.
// A Table is never mutated after construction: derived views are new Tables.
type Table struct {
	Headers []string
	Rows    [][]string

	headerIndex map[string]int
}

func New(headers []string, rows [][]string) *Table {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[Normalize(h)] = i
	}
	return &Table{Headers: headers, Rows: rows, headerIndex: index}
}

func (t *Table) NumRows() int { return len(t.Rows) }

func (t *Table) NumCols() int { return len(t.Headers) }

// ResolveColumn maps a column name to its index. Exact normalized match wins;
// otherwise the shortest substring-containment match is used.
func (t *Table) ResolveColumn(name string) (int, error) {
	key := Normalize(name)
	if i, ok := t.headerIndex[key]; ok {
		return i, nil
	}

	bestIdx := -1
	bestLen := 0
	for norm, i := range t.headerIndex {
		if !strings.Contains(norm, key) && !strings.Contains(key, norm) {
			continue
		}
		if bestIdx == -1 || len(norm) < bestLen || (len(norm) == bestLen && i < bestIdx) {
			bestIdx = i
			bestLen = len(norm)
		}
	}
	if bestIdx == -1 {
		return 0, fmt.Errorf("column not found: %q (available: %v)", name, t.Headers)
	}
	return bestIdx, nil
}

// Cell returns the cell at (row, col index), tolerating ragged rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns all values of a named column.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ResolveColumn(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, idx)
	}
	return out, nil
}

// SelectColumns projects the table onto the named columns.
func (t *Table) SelectColumns(names []string) (*Table, error) {
	idxs := make([]int, len(names))
	for i, n := range names {
		idx, err := t.ResolveColumn(n)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	headers := make([]string, len(idxs))
	for i, idx := range idxs {
		headers[i] = t.Headers[idx]
	}
	rows := make([][]string, len(t.Rows))
	for r := range t.Rows {
		row := make([]string, len(idxs))
		for i, idx := range idxs {
			row[i] = t.Cell(r, idx)
		}
		rows[r] = row
	}
	return New(headers, rows), nil
}

// FilterRows keeps rows satisfying the predicate.
func (t *Table) FilterRows(keep func(row []string) bool) *Table {
	var rows [][]string
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return New(append([]string(nil), t.Headers...), rows)
}

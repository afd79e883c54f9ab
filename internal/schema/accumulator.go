// Package schema tracks the growing column set discovered across crawled rows
// and materializes the dense, aligned output table.
package schema

import (
	"sync"

	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/model"
)

// Accumulator owns the column registry and the sparse per-row values. Merge is
// safe for concurrent use; the registry only ever grows.
type Accumulator struct {
	mu      sync.Mutex
	columns []string
	index   map[string]int
	rows    map[int]map[string]string
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		index: make(map[string]int),
		rows:  make(map[int]map[string]string),
	}
}

// Merge folds fields into the row at rowIndex. Unseen names are appended to the
// registry in the order they are encountered. Merging into the same row twice
// overwrites values by name.
func (a *Accumulator) Merge(rowIndex int, fields extract.Fields) {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[rowIndex]
	if !ok {
		row = make(map[string]string, len(fields))
		a.rows[rowIndex] = row
	}
	for _, f := range fields {
		name := f.Name()
		if _, seen := a.index[name]; !seen {
			a.index[name] = len(a.columns)
			a.columns = append(a.columns, name)
		}
		row[name] = f.Value
	}
}

// Columns returns a snapshot of the discovered columns in first-seen order.
func (a *Accumulator) Columns() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.columns...)
}

// Len returns the number of discovered columns.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.columns)
}

// Table is the dense output: every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Materialize builds the output table in one pass: input columns first, then
// the discovered columns. Rows keep input order; cells a row never produced are
// empty. Discovered columns whose names collide with an input column are
// written into that input column instead of being duplicated.
func (a *Accumulator) Materialize(base *model.SourceTable) *Table {
	a.mu.Lock()
	defer a.mu.Unlock()

	header := append([]string(nil), base.Header...)
	inputPos := make(map[string]int, len(header))
	for i, h := range header {
		inputPos[h] = i
	}

	pos := make([]int, len(a.columns))
	for i, col := range a.columns {
		if p, ok := inputPos[col]; ok {
			pos[i] = p
			continue
		}
		pos[i] = len(header)
		header = append(header, col)
	}

	out := &Table{Header: header, Rows: make([][]string, len(base.Rows))}
	for r, src := range base.Rows {
		cells := make([]string, len(header))
		copy(cells, src.Values)
		if vals, ok := a.rows[src.Index]; ok {
			for i, col := range a.columns {
				if v, ok := vals[col]; ok {
					cells[pos[i]] = v
				}
			}
		}
		out.Rows[r] = cells
	}
	return out
}

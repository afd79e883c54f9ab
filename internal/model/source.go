package model

import (
	"net/url"
	"strings"
)

// DefaultURLColumn is the input column holding the page to crawl.
const DefaultURLColumn = "Link"

// SourceRow is one input unit. Values holds every original cell in header order
// and is carried unchanged to the output.
type SourceRow struct {
	Index  int      `json:"index"`
	URL    string   `json:"url"`
	Values []string `json:"values"`
}

// HasURL reports whether the row carries a crawlable http(s) URL.
func (r SourceRow) HasURL() bool {
	return UsableURL(r.URL)
}

// SourceTable is the loaded input file.
type SourceTable struct {
	Header    []string    `json:"header"`
	URLColumn string      `json:"url_column"`
	Rows      []SourceRow `json:"rows"`
}

// NewSourceTable builds a SourceTable from a header and raw records. Records are
// padded or truncated to the header width. The URL column is located by exact
// name first, then case-insensitively; a missing column leaves every URL empty.
func NewSourceTable(header []string, records [][]string, urlColumn string) *SourceTable {
	if urlColumn == "" {
		urlColumn = DefaultURLColumn
	}
	idx := ColumnIndex(header, urlColumn)

	t := &SourceTable{
		Header:    append([]string(nil), header...),
		URLColumn: urlColumn,
		Rows:      make([]SourceRow, 0, len(records)),
	}
	for i, rec := range records {
		values := make([]string, len(header))
		copy(values, rec)

		var u string
		if idx >= 0 {
			u = strings.TrimSpace(values[idx])
		}
		t.Rows = append(t.Rows, SourceRow{Index: i, URL: u, Values: values})
	}
	return t
}

// Limit truncates the table to the first n rows. n <= 0 is a no-op.
func (t *SourceTable) Limit(n int) {
	if n > 0 && n < len(t.Rows) {
		t.Rows = t.Rows[:n]
	}
}

// URLCount returns the number of rows with a usable URL.
func (t *SourceTable) URLCount() int {
	n := 0
	for _, r := range t.Rows {
		if r.HasURL() {
			n++
		}
	}
	return n
}

// ColumnIndex returns the position of col in header, or -1.
func ColumnIndex(header []string, col string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == col {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i
		}
	}
	return -1
}

// UsableURL reports whether s is an absolute http or https URL.
func UsableURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

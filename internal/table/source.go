// Package table loads the crawl input table and writes output tables as CSV
// or XLSX.
package table

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/office-scraper/internal/fetcher"
	"github.com/sells-group/office-scraper/internal/model"
)

// LoadOptions configures LoadSourceTable.
type LoadOptions struct {
	URLColumn string
	Sheet     string
	Fetch     fetcher.Options
}

// LoadSourceTable reads a CSV or XLSX input (chosen by extension, CSV when
// unknown) from a local path, http(s) or ftp location. Every value is kept as
// text.
func LoadSourceTable(ctx context.Context, location string, opts LoadOptions) (*model.SourceTable, error) {
	rc, err := fetcher.Open(ctx, location, opts.Fetch)
	if err != nil {
		return nil, eris.Wrap(err, "table: open input")
	}
	defer rc.Close() //nolint:errcheck

	var header []string
	var records [][]string
	switch FormatOf(location) {
	case FormatXLSX:
		header, records, err = fetcher.ReadXLSXFrom(rc, fetcher.XLSXOptions{SheetName: opts.Sheet})
	default:
		header, records, err = fetcher.ReadCSV(ctx, rc, fetcher.CSVOptions{})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "table: parse %s", location)
	}

	return model.NewSourceTable(header, records, opts.URLColumn), nil
}

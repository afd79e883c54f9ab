package table

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/office-scraper/internal/fetcher"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", eris.Errorf("table: unknown format %q (want csv or xlsx)", s)
}

// FormatOf infers the format from a path or URL extension, defaulting to CSV.
func FormatOf(location string) Format {
	switch fetcher.Ext(location) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	}
	return FormatCSV
}

// Sink persists a header and rows.
type Sink interface {
	Write(header []string, rows [][]string) error
}

// NewSink returns a sink writing path in format f.
func NewSink(path string, f Format) Sink {
	if f == FormatXLSX {
		return &XLSXSink{Path: path}
	}
	return &CSVSink{Path: path}
}

// CSVSink writes a CSV file, or to W when set.
type CSVSink struct {
	Path string
	W    io.Writer

	create func(path string) (io.WriteCloser, error)
}

// Write emits the header then every row. The file is replaced, and a failure
// to close it is reported.
func (s *CSVSink) Write(header []string, rows [][]string) (err error) {
	w := s.W
	if w == nil {
		create := s.create
		if create == nil {
			create = func(path string) (io.WriteCloser, error) { return os.Create(path) }
		}
		f, cerr := create(s.Path)
		if cerr != nil {
			return eris.Wrapf(cerr, "table: create %s", s.Path)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = eris.Wrapf(cerr, "table: close %s", s.Path)
			}
		}()
		w = f
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "table: write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "table: write csv rows")
	}
	return nil
}

// XLSXSink writes a single-sheet workbook.
type XLSXSink struct {
	Path  string
	Sheet string
}

// Write builds the workbook in memory and saves it.
func (s *XLSXSink) Write(header []string, rows [][]string) error {
	name := s.Sheet
	if name == "" {
		name = "Sheet1"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "table: add sheet")
	}
	addRow(sheet, header)
	for _, r := range rows {
		addRow(sheet, r)
	}

	if err := f.Save(s.Path); err != nil {
		return eris.Wrapf(err, "table: save %s", s.Path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV parses a CSV document whose first record is the header. A leading
// UTF-8 or UTF-16 byte order mark, common in spreadsheet exports, is
// consumed. Records may have any width.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (header []string, records [][]string, err error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	for {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if header == nil {
			header = rec
			continue
		}
		records = append(records, rec)
	}

	if header == nil {
		return nil, nil, eris.New("csv: empty document")
	}
	return header, records, nil
}

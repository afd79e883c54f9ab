package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/render"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file-or-url>",
	Short: "Run the field extractor on one page and print the fields",
	Long:  "Debugs a selector profile: parses a local HTML file (or fetches an http(s) URL without rendering scripts) and prints every extracted column.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selectors, _ := cmd.Flags().GetString("selectors")
		asJSON, _ := cmd.Flags().GetBool("json")

		extractor, err := buildExtractor(selectors)
		if err != nil {
			return err
		}

		doc, err := loadDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fields := extractor.Extract(doc)
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(fields)
		}
		printFields(os.Stdout, args[0], fields)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("selectors", "", "YAML selector profile overriding the built-in layout")
	extractCmd.Flags().Bool("json", false, "print fields as JSON")
	rootCmd.AddCommand(extractCmd)
}

func loadDocument(ctx context.Context, location string) (*goquery.Document, error) {
	if model.UsableURL(location) {
		r := render.NewStatic(render.StaticOptions{UserAgent: cfg.Crawl.UserAgent})
		defer r.Close() //nolint:errcheck
		if err := r.Navigate(ctx, location, cfg.Crawl.NavigateTimeout()); err != nil {
			return nil, eris.Wrap(err, "extract: fetch page")
		}
		return r.CurrentDocument(ctx)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrap(err, "extract: open file")
	}
	defer f.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	return doc, nil
}

func printFields(w io.Writer, source string, fields extract.Fields) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(source)
	t.AppendHeader(table.Row{"Column", "Group", "Value"})
	for _, f := range fields {
		t.AppendRow(table.Row{f.Name(), f.Group.String(), f.Value})
	}
	t.AppendFooter(table.Row{"", "Addresses", fields.Count(extract.GroupAddress)})
	t.AppendFooter(table.Row{"", "Officials", fields.Count(extract.GroupOfficial)})
	t.AppendFooter(table.Row{"", "Fields", len(fields)})
	t.Render()
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/office-scraper/internal/crawl"
	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/fetcher"
	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/render"
	"github.com/sells-group/office-scraper/internal/resilience"
	tbl "github.com/sells-group/office-scraper/internal/table"
)

const (
	defaultCrawlInput  = "US Vote Foundation - Cleaned_Voting_Office_Data.csv"
	defaultCrawlOutput = "US_Vote_Office_Data_Parsed.csv"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl input URLs and extract office contact columns",
	Long: "Loads a CSV or XLSX table (local, http(s) or ftp), renders each row's URL, extracts " +
		"numbered address and official groups and writes the input columns plus every discovered column.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyCrawlFlags(cmd)
		if err := cfg.Validate("crawl"); err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		extractor, err := buildExtractor(cfg.Crawl.SelectorsFile)
		if err != nil {
			return err
		}

		source, err := tbl.LoadSourceTable(ctx, input, tbl.LoadOptions{
			URLColumn: cfg.Crawl.InputURLColumn,
			Sheet:     cfg.Input.Sheet,
			Fetch: fetcher.Options{
				HTTP: fetcher.HTTPOptions{
					UserAgent:  cfg.Crawl.UserAgent,
					Timeout:    time.Duration(cfg.Input.TimeoutSecs) * time.Second,
					MaxRetries: cfg.Input.MaxRetries,
				},
				FTP: fetcher.FTPOptions{Timeout: time.Duration(cfg.Input.TimeoutSecs) * time.Second},
			},
		})
		if err != nil {
			return eris.Wrap(err, "crawl: load input")
		}
		if limit > 0 {
			source.Limit(limit)
		}

		if dryRun {
			printSourceSummary(os.Stdout, input, source)
			return nil
		}

		format := tbl.FormatOf(output)
		if formatFlag != "" {
			if format, err = tbl.ParseFormat(formatFlag); err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("crawl: run diagnostics disabled", zap.Error(err))
			st = nil
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		tracker := startRun(ctx, st, model.RunKindCrawl, input, output)

		factory, err := rendererFactory(cfg.Crawl.Renderer)
		if err != nil {
			return err
		}

		driver := crawl.New(factory, crawl.Options{
			NavigateTimeout: cfg.Crawl.NavigateTimeout(),
			Wait:            render.NewWaitPolicy(cfg.Crawl.Settle(), cfg.Crawl.ReadySelector, cfg.Crawl.ReadyTimeout()),
			Extractor:       extractor,
			Concurrency:     cfg.Crawl.Concurrency,
			Recorder: crawl.RecorderFunc(func(ctx context.Context, o crawl.Outcome) error {
				return tracker.record(ctx, outcomeRow(o))
			}),
		})

		out, summary, runErr := driver.Run(ctx, source)

		// The table is written even after a fatal renderer error or an
		// interrupt; it then holds every row, with unreached rows unextracted.
		writeErr := tbl.NewSink(output, format).Write(out.Header, out.Rows)

		status := summary.Status()
		finishErr := runErr
		if writeErr != nil {
			status = model.RunStatusFailed
			finishErr = writeErr
		}
		tracker.finish(context.WithoutCancel(ctx), status, summary.Stats(), finishErr)

		printCrawlSummary(os.Stderr, output, tracker.ID(), summary)

		if writeErr != nil {
			return eris.Wrapf(writeErr, "crawl: write %s", output)
		}
		if runErr != nil {
			return eris.Wrap(runErr, "crawl: incomplete, partial output written")
		}
		return nil
	},
}

func init() {
	f := crawlCmd.Flags()
	f.StringP("input", "i", defaultCrawlInput, "input table: CSV or XLSX path, http(s):// or ftp:// URL")
	f.StringP("output", "o", defaultCrawlOutput, "output table path")
	f.String("format", "", "output format: csv or xlsx (default from output extension)")
	f.Int("limit", 0, "only process the first N rows (0 = all)")
	f.Bool("dry-run", false, "load the input and print a summary without crawling")
	f.String("renderer", "", "renderer: static or chrome (default from config)")
	f.Int("concurrency", 0, "number of renderers (default from config)")
	f.Duration("settle", 0, "fixed delay after each navigation (default from config)")
	f.String("ready-selector", "", "wait until this CSS selector matches instead of a fixed delay")
	f.String("selectors", "", "YAML selector profile overriding the built-in layout")
	f.String("url-column", "", "input column holding the page URL (default from config)")

	rootCmd.AddCommand(crawlCmd)
}

// applyCrawlFlags copies explicitly set flags over the loaded config.
func applyCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("renderer") {
		cfg.Crawl.Renderer, _ = f.GetString("renderer")
	}
	if f.Changed("concurrency") {
		cfg.Crawl.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("settle") {
		d, _ := f.GetDuration("settle")
		cfg.Crawl.SettleMS = int(d / time.Millisecond)
	}
	if f.Changed("ready-selector") {
		cfg.Crawl.ReadySelector, _ = f.GetString("ready-selector")
	}
	if f.Changed("selectors") {
		cfg.Crawl.SelectorsFile, _ = f.GetString("selectors")
	}
	if f.Changed("url-column") {
		cfg.Crawl.InputURLColumn, _ = f.GetString("url-column")
	}
}

func buildExtractor(selectorsFile string) (*extract.Extractor, error) {
	if selectorsFile == "" {
		return extract.Default(), nil
	}
	sel, err := extract.LoadSelectors(selectorsFile)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: load selectors")
	}
	return extract.New(sel), nil
}

func rendererFactory(name string) (render.Factory, error) {
	switch name {
	case "static", "":
		return func(context.Context) (render.Renderer, error) {
			return render.NewStatic(render.StaticOptions{UserAgent: cfg.Crawl.UserAgent}), nil
		}, nil
	case "chrome":
		opts := render.ChromeOptions{
			ExecPath:  cfg.Chrome.ExecPath,
			Headless:  cfg.Chrome.Headless,
			UserAgent: cfg.Crawl.UserAgent,
		}
		return func(ctx context.Context) (render.Renderer, error) {
			return render.NewChrome(ctx, opts)
		}, nil
	}
	return nil, eris.Errorf("crawl: unknown renderer %q", name)
}

// outcomeRow converts a committed crawl outcome to its stored diagnostic.
func outcomeRow(o crawl.Outcome) model.RowOutcome {
	row := model.RowOutcome{
		RowIndex:   o.Row,
		URL:        o.URL,
		State:      o.State,
		FieldCount: len(o.Fields),
	}
	if o.Err != nil {
		row.Error = o.Err.Error()
		row.ErrorType = resilience.ClassifyError(o.Err.Err)
	}
	return row
}

func printSourceSummary(w io.Writer, input string, source *model.SourceTable) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Input: " + input)
	t.AppendRows([]table.Row{
		{"Rows", len(source.Rows)},
		{"Rows with URL", source.URLCount()},
		{"Columns", len(source.Header)},
		{"URL column", urlColumnName(source)},
	})
	t.Render()
}

func urlColumnName(source *model.SourceTable) string {
	if model.ColumnIndex(source.Header, source.URLColumn) < 0 {
		return source.URLColumn + " (missing)"
	}
	return source.URLColumn
}

func printCrawlSummary(w io.Writer, output, runID string, s crawl.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Crawl: " + string(s.Status()))
	t.AppendRows([]table.Row{
		{"Output", output},
		{"Rows", s.Rows},
		{"Extracted", s.Extracted},
		{"Failed", s.Failed},
		{"Skipped", s.Skipped},
		{"Not reached", s.Pending},
		{"Discovered columns", s.Columns},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	})
	if runID != "" {
		t.AppendRow(table.Row{"Run", runID})
	}
	t.Render()
	if s.Aborted {
		_, _ = fmt.Fprintln(w, "Renderer failed; remaining rows were not crawled.")
	}
}

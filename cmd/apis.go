package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/offices"
	"github.com/sells-group/office-scraper/internal/resilience"
	tbl "github.com/sells-group/office-scraper/internal/table"
)

const defaultAPIsOutput = "precincts.csv"

var apisCmd = &cobra.Command{
	Use:   "apis",
	Short: "Compile election offices from VoteAmerica, CivicAPI and Google Civic",
	Long: "Queries each configured civic API per state and writes one fixed-column table " +
		"(state, county, precinct_name, address, official_name, role, email, website, source). " +
		"Sources without a credential contribute no records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if states, _ := cmd.Flags().GetStringSlice("states"); len(states) > 0 {
			cfg.APIs.States = states
		}
		if err := cfg.Validate("apis"); err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")

		format := tbl.FormatOf(output)
		if formatFlag != "" {
			var err error
			if format, err = tbl.ParseFormat(formatFlag); err != nil {
				return err
			}
		}

		if !cfg.HasAPIKeys() {
			zap.L().Info("apis: no API credentials configured; output will have only a header")
		}

		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("apis: run diagnostics disabled", zap.Error(err))
			st = nil
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		tracker := startRun(ctx, st, model.RunKindAPIs, strings.Join(cfg.APIs.States, ","), output)

		collector := offices.NewCollector(sourcesFromConfig(), offices.Options{
			Retry: resilience.DefaultRetryConfig().WithAttempts(cfg.APIs.MaxAttempts),
			Breakers: resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
				FailureThreshold: cfg.APIs.CircuitThreshold,
				ResetTimeout:     time.Duration(cfg.APIs.CircuitResetSecs) * time.Second,
				ShouldTrip:       func(err error) bool { return !errors.Is(err, context.Canceled) },
				OnStateChange: func(from, to resilience.CircuitState) {
					zap.L().Warn("apis: circuit state changed",
						zap.String("from", from.String()), zap.String("to", to.String()))
				},
			}),
			Concurrency: cfg.APIs.Concurrency,
			OnFetch: func(ctx context.Context, f offices.Fetch) {
				if err := tracker.record(context.WithoutCancel(ctx), fetchRow(f)); err != nil {
					zap.L().Warn("apis: record fetch failed", zap.Error(err))
				}
			},
		})

		res, runErr := collector.Collect(ctx, cfg.APIs.States)

		writeErr := tbl.NewSink(output, format).Write(model.OfficeColumns, res.Rows())

		status := model.RunStatusComplete
		if runErr != nil {
			status = model.RunStatusPartial
		}
		finishErr := runErr
		if writeErr != nil {
			status = model.RunStatusFailed
			finishErr = writeErr
		}
		tracker.finish(context.WithoutCancel(ctx), status, apisStats(res), finishErr)

		printAPIsSummary(os.Stderr, output, tracker.ID(), res)

		if writeErr != nil {
			return eris.Wrapf(writeErr, "apis: write %s", output)
		}
		return runErr
	},
}

func init() {
	f := apisCmd.Flags()
	f.StringSlice("states", nil, "comma-separated state codes (default from config: AL,AK)")
	f.StringP("output", "o", defaultAPIsOutput, "output table path")
	f.String("format", "", "output format: csv or xlsx (default from output extension)")

	rootCmd.AddCommand(apisCmd)
}

func sourcesFromConfig() []offices.Source {
	return offices.NewSources(offices.Credentials{
		VoteAmericaKey:     cfg.VoteAmerica.Key,
		VoteAmericaBaseURL: cfg.VoteAmerica.BaseURL,
		GoogleCivicKey:     cfg.Google.CivicKey,
		GoogleCivicBaseURL: cfg.Google.CivicBaseURL,
		CivicAPIKey:        cfg.CivicAPI.Key,
		CivicAPIBaseURL:    cfg.CivicAPI.BaseURL,
		Timeout:            time.Duration(cfg.APIs.TimeoutSecs) * time.Second,
	})
}

// fetchRow stores one (state, source) call as a row outcome. The URL column
// holds "source:state".
func fetchRow(f offices.Fetch) model.RowOutcome {
	row := model.RowOutcome{
		RowIndex:   f.Index,
		URL:        f.Source + ":" + f.State,
		State:      model.RowExtracted,
		FieldCount: f.Records,
	}
	switch {
	case f.Skipped:
		row.State = model.RowSkipped
		row.Error = f.Err.Error()
	case f.Err != nil:
		row.State = model.RowFailed
		row.Error = f.Err.Error()
		row.ErrorType = resilience.ClassifyError(f.Err)
	}
	return row
}

func apisStats(res offices.Result) model.RunStats {
	s := model.RunStats{Rows: len(res.Records), Columns: len(model.OfficeColumns)}
	for _, f := range res.Fetches {
		switch {
		case f.Skipped:
			s.Skipped++
		case f.Err != nil:
			s.Failed++
		default:
			s.Extracted++
		}
	}
	return s
}

func printAPIsSummary(w io.Writer, output, runID string, res offices.Result) {
	counts := make(map[string]int)
	for _, r := range res.Records {
		counts[r.Source]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("APIs: %d records -> %s", len(res.Records), output))
	t.AppendHeader(table.Row{"Source", "Records", "Failed calls"})
	for _, name := range []string{offices.SourceVoteAmerica, offices.SourceCivicAPI, offices.SourceGoogleCivic} {
		failed := 0
		for _, f := range res.Failed() {
			if f.Source == name {
				failed++
			}
		}
		t.AppendRow(table.Row{name, counts[name], failed})
	}
	if runID != "" {
		t.AppendFooter(table.Row{"Run", runID, ""})
	}
	t.Render()
}

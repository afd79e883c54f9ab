package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/render"
)

// Stage names the step at which a row failed.
type Stage string

const (
	StageRenderer Stage = "renderer"
	StageNavigate Stage = "navigate"
	StageSettle   Stage = "settle"
	StageDocument Stage = "document"
)

// CrawlError is the diagnostic attached to a failed row.
type CrawlError struct {
	Row   int
	URL   string
	Stage Stage
	Err   error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl: row %d %s: %s: %v", e.Row, e.URL, e.Stage, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the failure means the renderer is unusable.
func (e *CrawlError) Fatal() bool {
	return render.IsFatal(e.Err)
}

// Outcome is the explicit result of processing one row.
type Outcome struct {
	Row      int
	URL      string
	State    model.RowState
	Fields   extract.Fields
	Err      *CrawlError
	Duration time.Duration

	// interrupted marks a row abandoned because the run was cancelled. Such
	// outcomes are never committed.
	interrupted bool
}

// Recorder receives every committed outcome, in input order.
type Recorder interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, o Outcome) error

// RecordOutcome calls f.
func (f RecorderFunc) RecordOutcome(ctx context.Context, o Outcome) error {
	return f(ctx, o)
}

// Summary counts row outcomes for a run. Pending rows were never reached
// because the run was aborted or interrupted.
type Summary struct {
	Rows        int           `json:"rows"`
	Extracted   int           `json:"extracted"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Pending     int           `json:"pending"`
	Columns     int           `json:"columns"`
	Aborted     bool          `json:"aborted"`
	Interrupted bool          `json:"interrupted"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Stats converts the summary to the stored run statistics.
func (s Summary) Stats() model.RunStats {
	return model.RunStats{
		Rows:      s.Rows,
		Extracted: s.Extracted,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Columns:   s.Columns,
	}
}

// Status maps the summary to a run status.
func (s Summary) Status() model.RunStatus {
	if s.Aborted || s.Interrupted {
		return model.RunStatusPartial
	}
	return model.RunStatusComplete
}

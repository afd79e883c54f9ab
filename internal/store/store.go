// Package store persists run diagnostics: one record per crawl or apis run and
// one outcome per processed row. It is for inspection; runs are never resumed
// from it.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/office-scraper/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter narrows ListRuns.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store is the persistence interface for run diagnostics.
type Store interface {
	CreateRun(ctx context.Context, kind model.RunKind, input, output string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// RecordRow upserts the outcome for (RunID, RowIndex).
	RecordRow(ctx context.Context, o model.RowOutcome) error
	// ListRowOutcomes returns a run's outcomes by row index. An empty state
	// returns all of them.
	ListRowOutcomes(ctx context.Context, runID string, state model.RowState) ([]model.RowOutcome, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

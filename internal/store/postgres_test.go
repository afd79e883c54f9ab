package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/office-scraper/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func runRowColumns() []string {
	return []string{"id", "kind", "input", "output", "status", "stats", "error", "started_at", "finished_at"}
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "crawl", "in.csv", "out.csv", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunKindCrawl, "in.csv", "out.csv")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`UPDATE runs SET status = \$1`).
		WithArgs("complete", pgxmock.AnyArg(), "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FinishRun(context.Background(), "run-1", model.RunStatusComplete, model.RunStats{Rows: 2}, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`UPDATE runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunStatusComplete, model.RunStats{}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)

	mock.ExpectQuery(`SELECT id, kind, input, output, status, stats::text, error, started_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runRowColumns()).
			AddRow("run-1", "crawl", "in.csv", "out.csv", "partial", `{"rows":3,"failed":1}`, "boom", started, finished))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, run.Status)
	assert.Equal(t, 3, run.Stats.Rows)
	assert.Equal(t, 1, run.Stats.Failed)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs\s+WHERE`).
		WithArgs("apis", "", 50).
		WillReturnRows(pgxmock.NewRows(runRowColumns()).
			AddRow("r2", "apis", "", "offices.csv", "complete", `{"rows":12}`, "", started, nil).
			AddRow("r1", "apis", "", "offices.csv", "failed", `{}`, "no sources", started, nil))

	runs, err := s.ListRuns(context.Background(), RunFilter{Kind: model.RunKindAPIs})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, 12, runs[0].Stats.Rows)
	assert.Nil(t, runs[0].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`(?s)INSERT INTO row_outcomes.*ON CONFLICT \(run_id, row_index\) DO UPDATE`).
		WithArgs("run-1", 4, "https://x.example", "failed", 0, "status 503", "transient", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordRow(context.Background(), model.RowOutcome{
		RunID: "run-1", RowIndex: 4, URL: "https://x.example",
		State: model.RowFailed, Error: "status 503", ErrorType: "transient",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRow_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO row_outcomes`).WillReturnError(errors.New("conn lost"))

	err := s.RecordRow(context.Background(), model.RowOutcome{RunID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record row")
}

func TestPostgresStore_ListRowOutcomes(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM row_outcomes WHERE run_id = \$1`).
		WithArgs("run-1", "failed").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "row_index", "url", "state", "field_count", "error", "error_type", "recorded_at"}).
			AddRow("run-1", 1, "https://b.example", "failed", 0, "timeout", "transient", at))

	out, err := s.ListRowOutcomes(context.Background(), "run-1", model.RowFailed)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.RowFailed, out[0].State)
	assert.Equal(t, at, out[0].RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

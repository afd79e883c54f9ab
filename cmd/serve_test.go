//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedRun(t *testing.T, st store.Store) *model.Run {
	t.Helper()
	ctx := context.Background()
	run, err := st.CreateRun(ctx, model.RunKindCrawl, "in.csv", "out.csv")
	require.NoError(t, err)
	require.NoError(t, st.RecordRow(ctx, model.RowOutcome{RunID: run.ID, RowIndex: 0, URL: "https://a.example", State: model.RowExtracted, FieldCount: 3}))
	require.NoError(t, st.RecordRow(ctx, model.RowOutcome{RunID: run.ID, RowIndex: 1, URL: "https://b.example", State: model.RowFailed, Error: "404", ErrorType: "permanent"}))
	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunStatusComplete, model.RunStats{Rows: 2, Extracted: 1, Failed: 1}, ""))
	return run
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServe_Health(t *testing.T) {
	rec := doGet(t, newRouter(newTestStore(t)), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ListRuns(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st)
	h := newRouter(st)

	rec := doGet(t, h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)

	rec = doGet(t, h, "/runs?kind=apis")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServe_GetRun(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st)
	h := newRouter(st)

	rec := doGet(t, h, "/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Stats.Failed)
	assert.NotNil(t, got.FinishedAt)

	rec = doGet(t, h, "/runs/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_RunRows(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st)
	h := newRouter(st)

	rec := doGet(t, h, "/runs/"+run.ID+"/rows")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []model.RowOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].RowIndex)

	rec = doGet(t, h, "/runs/"+run.ID+"/rows?state=failed")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "permanent", rows[0].ErrorType)

	rec = doGet(t, h, "/runs/missing/rows")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

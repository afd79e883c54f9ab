package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// runTracker records a run and its row outcomes. Diagnostics never fail the
// run itself: with no store, or on store errors, it logs and carries on.
type runTracker struct {
	st  store.Store
	run *model.Run
	log *zap.Logger
}

func startRun(ctx context.Context, st store.Store, kind model.RunKind, input, output string) *runTracker {
	t := &runTracker{st: st, log: zap.L().With(zap.String("component", "runs"))}
	if st == nil {
		return t
	}
	run, err := st.CreateRun(ctx, kind, input, output)
	if err != nil {
		t.log.Warn("runs: create run failed", zap.Error(err))
		return t
	}
	t.run = run
	t.log.Info("runs: started", zap.String("run_id", run.ID), zap.String("kind", string(kind)))
	return t
}

// ID returns the run id, or "" when nothing is recorded.
func (t *runTracker) ID() string {
	if t.run == nil {
		return ""
	}
	return t.run.ID
}

func (t *runTracker) record(ctx context.Context, o model.RowOutcome) error {
	if t.run == nil {
		return nil
	}
	o.RunID = t.run.ID
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	return t.st.RecordRow(ctx, o)
}

func (t *runTracker) finish(ctx context.Context, status model.RunStatus, stats model.RunStats, runErr error) {
	if t.run == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := t.st.FinishRun(ctx, t.run.ID, status, stats, msg); err != nil {
		t.log.Warn("runs: finish run failed", zap.String("run_id", t.run.ID), zap.Error(err))
	}
}

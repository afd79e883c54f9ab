// Package crawl visits each input row's URL with a renderer, extracts fields,
// and folds them into the schema accumulator while isolating per-row failures.
package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/render"
	"github.com/sells-group/office-scraper/internal/schema"
)

// DefaultNavigateTimeout bounds a single page load.
const DefaultNavigateTimeout = 60 * time.Second

// DefaultSettle is the fixed post-navigation delay.
const DefaultSettle = 3 * time.Second

// Options tune a Driver. Zero values fall back to defaults.
type Options struct {
	NavigateTimeout time.Duration
	Wait            render.WaitPolicy
	Extractor       *extract.Extractor
	// Concurrency is the number of independent renderers. Values below 2
	// crawl strictly sequentially with one renderer.
	Concurrency int
	Logger      *zap.Logger
	Recorder    Recorder
}

// Driver runs a crawl over a SourceTable.
type Driver struct {
	newRenderer render.Factory
	opts        Options
	log         *zap.Logger
}

// New creates a Driver. Renderers are created from factory once per worker
// and closed when the run ends.
func New(factory render.Factory, opts Options) *Driver {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = DefaultNavigateTimeout
	}
	if opts.Wait == nil {
		opts.Wait = render.FixedDelay(DefaultSettle)
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Default()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	log = log.With(zap.String("component", "crawl"))
	if u, ok := opts.Wait.(render.UntilSelector); ok && u.Logger == nil {
		u.Logger = log
		opts.Wait = u
	}
	return &Driver{
		newRenderer: factory,
		opts:        opts,
		log:         log,
	}
}

// Run crawls every row of table and returns the materialized output. The table
// is always returned, even when err is non-nil: a renderer failure aborts the
// remaining rows (err is the row's *CrawlError) and cancellation of ctx stops
// the crawl early, keeping everything gathered so far.
func (d *Driver) Run(ctx context.Context, table *model.SourceTable) (*schema.Table, Summary, error) {
	start := time.Now()
	c := &committer{
		acc:      schema.NewAccumulator(),
		log:      d.log,
		recorder: d.opts.Recorder,
		ctx:      context.WithoutCancel(ctx),
	}
	c.summary.Rows = len(table.Rows)

	d.log.Info("crawl: starting",
		zap.Int("rows", len(table.Rows)),
		zap.Int("urls", table.URLCount()),
		zap.Int("concurrency", d.opts.Concurrency),
		zap.Duration("navigate_timeout", d.opts.NavigateTimeout),
	)

	if d.opts.Concurrency > 1 && table.URLCount() > 1 {
		d.runConcurrent(ctx, table, c)
	} else {
		d.runSequential(ctx, table, c)
	}

	if ctx.Err() != nil && c.fatal == nil {
		c.summary.Interrupted = true
	}
	if c.fatal != nil {
		c.summary.Aborted = true
	}
	c.summary.Pending = c.summary.Rows - c.summary.Extracted - c.summary.Failed - c.summary.Skipped
	c.summary.Columns = c.acc.Len()
	c.summary.Elapsed = time.Since(start)

	out := c.acc.Materialize(table)

	d.log.Info("crawl: finished",
		zap.Int("rows", c.summary.Rows),
		zap.Int("extracted", c.summary.Extracted),
		zap.Int("failed", c.summary.Failed),
		zap.Int("skipped", c.summary.Skipped),
		zap.Int("pending", c.summary.Pending),
		zap.Int("columns", c.summary.Columns),
		zap.Duration("elapsed", c.summary.Elapsed),
	)

	switch {
	case c.fatal != nil:
		return out, c.summary, c.fatal
	case c.summary.Interrupted:
		return out, c.summary, eris.Wrap(ctx.Err(), "crawl: interrupted")
	}
	return out, c.summary, nil
}

func (d *Driver) runSequential(ctx context.Context, table *model.SourceTable, c *committer) {
	var r render.Renderer
	defer func() {
		if r != nil {
			d.closeRenderer(r)
		}
	}()

	for pos := range table.Rows {
		if ctx.Err() != nil {
			return
		}
		row := table.Rows[pos]

		if row.HasURL() && r == nil {
			var err error
			r, err = d.newRenderer(ctx)
			if err != nil {
				c.commit(rendererFailure(row, err))
				return
			}
		}

		o := d.process(ctx, r, row)
		if o.interrupted {
			return
		}
		if !c.commit(o) {
			return
		}
	}
}

func (d *Driver) runConcurrent(ctx context.Context, table *model.SourceTable, c *committer) {
	renderers, startErr := d.startRenderers(ctx, min(d.opts.Concurrency, table.URLCount()))
	if ctx.Err() != nil {
		for _, r := range renderers {
			d.closeRenderer(r)
		}
		return
	}
	if len(renderers) == 0 {
		d.failOnFirstURL(table, c, startErr)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan Outcome, len(table.Rows))

	g.Go(func() error {
		defer close(jobs)
		for pos := range table.Rows {
			select {
			case jobs <- pos:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for _, r := range renderers {
		g.Go(func() error {
			defer d.closeRenderer(r)

			for pos := range jobs {
				o := d.process(gctx, r, table.Rows[pos])
				// Interrupted rows are still sent so the sequencer can
				// release everything before them.
				results <- o
				if o.interrupted {
					return nil
				}
				if o.Err != nil && o.Err.Fatal() {
					return o.Err
				}
			}
			return nil
		})
	}

	var groupErr error
	go func() {
		groupErr = g.Wait()
		close(results)
	}()

	// Commit strictly in input order so the column registry grows exactly as
	// it would in a sequential run.
	seq := newSequencer(table.Rows)
	stopped := false
	for o := range results {
		for _, ready := range seq.push(o) {
			if stopped {
				continue
			}
			if ready.interrupted || !c.commit(ready) {
				stopped = true
			}
		}
	}

	// A fatal row queued behind interrupted ones was never committed; the run
	// still ends as aborted rather than interrupted.
	var ce *CrawlError
	if c.fatal == nil && errors.As(groupErr, &ce) && ce.Fatal() {
		c.fatal = ce
	}
}

// startRenderers launches up to n renderers in parallel before any row is
// dispatched. Renderers that fail to start are logged and left out of the
// pool; the first such error is returned when none started.
func (d *Driver) startRenderers(ctx context.Context, n int) ([]render.Renderer, error) {
	started := make([]render.Renderer, n)
	errs := make([]error, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			started[i], errs[i] = d.newRenderer(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var pool []render.Renderer
	var firstErr error
	for i, r := range started {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			d.log.Warn("crawl: renderer failed to start", zap.Int("worker", i), zap.Error(errs[i]))
			continue
		}
		pool = append(pool, r)
	}
	if len(pool) > 0 && len(pool) < n {
		d.log.Warn("crawl: running with fewer renderers",
			zap.Int("requested", n),
			zap.Int("started", len(pool)),
		)
	}
	return pool, firstErr
}

// failOnFirstURL commits the rows a sequential run would reach when no
// renderer can be created: skipped rows up to the first row with a URL, which
// fails at the renderer stage and aborts the crawl.
func (d *Driver) failOnFirstURL(table *model.SourceTable, c *committer, err error) {
	for _, row := range table.Rows {
		if row.HasURL() {
			c.commit(rendererFailure(row, err))
			return
		}
		c.commit(Outcome{Row: row.Index, URL: row.URL, State: model.RowSkipped})
	}
}

// process moves one row through PENDING -> LOADED -> EXTRACTED | FAILED, or
// SKIPPED when it has no usable URL.
func (d *Driver) process(ctx context.Context, r render.Renderer, row model.SourceRow) Outcome {
	o := Outcome{Row: row.Index, URL: row.URL, State: model.RowPending}
	if !row.HasURL() {
		o.State = model.RowSkipped
		return o
	}

	d.log.Info("crawl: processing row", zap.Int("row", row.Index), zap.String("url", row.URL))
	start := time.Now()

	fail := func(stage Stage, err error) Outcome {
		if ctx.Err() != nil && !render.IsFatal(err) {
			o.interrupted = true
			return o
		}
		o.State = model.RowFailed
		o.Err = &CrawlError{Row: row.Index, URL: row.URL, Stage: stage, Err: err}
		o.Duration = time.Since(start)
		return o
	}

	if err := r.Navigate(ctx, row.URL, d.opts.NavigateTimeout); err != nil {
		return fail(StageNavigate, err)
	}
	if err := d.opts.Wait.Settle(ctx, r); err != nil {
		return fail(StageSettle, err)
	}
	doc, err := r.CurrentDocument(ctx)
	if err != nil {
		return fail(StageDocument, err)
	}
	o.State = model.RowLoaded

	o.Fields = d.opts.Extractor.Extract(doc)
	o.State = model.RowExtracted
	o.Duration = time.Since(start)
	return o
}

func (d *Driver) closeRenderer(r render.Renderer) {
	if err := r.Close(); err != nil {
		d.log.Warn("crawl: close renderer", zap.Error(err))
	}
}

func rendererFailure(row model.SourceRow, err error) Outcome {
	if !render.IsFatal(err) {
		err = &render.FatalError{Err: err}
	}
	return Outcome{
		Row:   row.Index,
		URL:   row.URL,
		State: model.RowFailed,
		Err:   &CrawlError{Row: row.Index, URL: row.URL, Stage: StageRenderer, Err: err},
	}
}

// committer applies outcomes to the accumulator, counters, logs and recorder.
type committer struct {
	acc      *schema.Accumulator
	log      *zap.Logger
	recorder Recorder
	ctx      context.Context
	summary  Summary
	fatal    *CrawlError
}

// commit applies o and reports whether the crawl may continue.
func (c *committer) commit(o Outcome) bool {
	switch o.State {
	case model.RowExtracted:
		c.acc.Merge(o.Row, o.Fields)
		c.summary.Extracted++
		c.log.Debug("crawl: row extracted",
			zap.Int("row", o.Row),
			zap.Strings("fields", o.Fields.Names()),
			zap.Int("columns", c.acc.Len()),
		)
	case model.RowSkipped:
		c.summary.Skipped++
		c.log.Debug("crawl: row skipped, no usable url", zap.Int("row", o.Row))
	case model.RowFailed:
		c.summary.Failed++
		c.log.Warn("crawl: row failed",
			zap.Int("row", o.Row),
			zap.String("url", o.URL),
			zap.String("stage", string(o.Err.Stage)),
			zap.Error(o.Err.Err),
		)
		if o.Err.Fatal() {
			c.fatal = o.Err
		}
	}

	if c.recorder != nil {
		if err := c.recorder.RecordOutcome(c.ctx, o); err != nil {
			c.log.Warn("crawl: record outcome", zap.Int("row", o.Row), zap.Error(err))
		}
	}
	return c.fatal == nil
}

package offices

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/internal/resilience"
	"github.com/sells-group/office-scraper/pkg/civicapi"
	"github.com/sells-group/office-scraper/pkg/civicinfo"
	"github.com/sells-group/office-scraper/pkg/voteamerica"
)

// DefaultStates are queried when no states are configured.
var DefaultStates = []string{"AL", "AK"}

// Credentials holds per-source keys and endpoint overrides. An empty key
// disables that source.
type Credentials struct {
	VoteAmericaKey     string
	VoteAmericaBaseURL string
	GoogleCivicKey     string
	GoogleCivicBaseURL string
	CivicAPIKey        string
	CivicAPIBaseURL    string
	Timeout            time.Duration
}

// NewSources builds the sources in collection order: VoteAmerica, CivicAPI,
// GoogleCivic.
func NewSources(creds Credentials) []Source {
	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	va := VoteAmericaSource{}
	if creds.VoteAmericaKey != "" {
		opts := []voteamerica.Option{voteamerica.WithTimeout(timeout)}
		if creds.VoteAmericaBaseURL != "" {
			opts = append(opts, voteamerica.WithBaseURL(creds.VoteAmericaBaseURL))
		}
		va.Client = voteamerica.NewClient(creds.VoteAmericaKey, opts...)
	}

	ca := CivicAPISource{}
	if creds.CivicAPIKey != "" {
		opts := []civicapi.Option{civicapi.WithTimeout(timeout)}
		if creds.CivicAPIBaseURL != "" {
			opts = append(opts, civicapi.WithBaseURL(creds.CivicAPIBaseURL))
		}
		ca.Client = civicapi.NewClient(creds.CivicAPIKey, opts...)
	}

	gc := GoogleCivicSource{}
	if creds.GoogleCivicKey != "" {
		opts := []civicinfo.Option{civicinfo.WithTimeout(timeout)}
		if creds.GoogleCivicBaseURL != "" {
			opts = append(opts, civicinfo.WithBaseURL(creds.GoogleCivicBaseURL))
		}
		gc.Client = civicinfo.NewClient(creds.GoogleCivicKey, opts...)
	}

	return []Source{va, ca, gc}
}

// Fetch is the outcome of one (state, source) call.
type Fetch struct {
	Index    int
	State    string
	Source   string
	Records  int
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Result is everything a Collect call produced.
type Result struct {
	Records []model.OfficeRecord
	Fetches []Fetch
}

// Failed returns the fetches that ended in error.
func (r Result) Failed() []Fetch {
	var out []Fetch
	for _, f := range r.Fetches {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Rows returns the records as table rows in model.OfficeColumns order.
func (r Result) Rows() [][]string {
	rows := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		rows[i] = rec.Row()
	}
	return rows
}

// Options configures a Collector.
type Options struct {
	Retry    resilience.RetryConfig
	Breakers *resilience.ServiceBreakers
	// Concurrency bounds how many states are fetched at once. Default 1.
	Concurrency int
	Logger      *zap.Logger
	// OnFetch, when set, is called once per (state, source) in output order.
	OnFetch func(ctx context.Context, f Fetch)
}

// Collector queries every enabled source for every state.
type Collector struct {
	sources []Source
	opts    Options
	log     *zap.Logger
}

// NewCollector creates a Collector over sources, which are queried in order.
func NewCollector(sources []Source, opts Options) *Collector {
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
			ShouldTrip: func(err error) bool { return !errors.Is(err, context.Canceled) },
		})
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	return &Collector{
		sources: sources,
		opts:    opts,
		log:     log.With(zap.String("component", "offices")),
	}
}

// Collect fetches records for each state. Records are ordered by state, then
// by source. A failing source is logged and skipped; only cancellation
// returns an error, together with whatever completed.
func (c *Collector) Collect(ctx context.Context, states []string) (Result, error) {
	if len(states) == 0 {
		states = DefaultStates
	}

	for _, s := range c.sources {
		if !s.Enabled() {
			c.log.Info("offices: source disabled, no credential", zap.String("source", s.Name()))
		}
	}

	perState := make([][]Fetch, len(states))
	records := make([][]model.OfficeRecord, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, state := range states {
		state = strings.ToUpper(strings.TrimSpace(state))
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			perState[i], records[i] = c.collectState(gctx, state)
			return nil
		})
	}
	err := g.Wait()

	var res Result
	idx := 0
	for i := range states {
		for _, f := range perState[i] {
			f.Index = idx
			idx++
			res.Fetches = append(res.Fetches, f)
			if c.opts.OnFetch != nil {
				c.opts.OnFetch(ctx, f)
			}
		}
		res.Records = append(res.Records, records[i]...)
	}

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, eris.Wrap(err, "offices: interrupted")
	}

	c.log.Info("offices: collected",
		zap.Int("states", len(states)),
		zap.Int("records", len(res.Records)),
		zap.Int("failed", len(res.Failed())),
	)
	return res, nil
}

func (c *Collector) collectState(ctx context.Context, state string) ([]Fetch, []model.OfficeRecord) {
	var fetches []Fetch
	var out []model.OfficeRecord

	for _, src := range c.sources {
		if !src.Enabled() {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		f := Fetch{State: state, Source: src.Name()}
		start := time.Now()

		retry := c.opts.Retry
		if retry.OnRetry == nil {
			retry.OnRetry = resilience.RetryLogger(src.Name(), "fetch "+state)
		}
		breaker := c.opts.Breakers.Get(src.Name())

		recs, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]model.OfficeRecord, error) {
			return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.OfficeRecord, error) {
				return src.Fetch(ctx, state)
			})
		})
		f.Duration = time.Since(start)

		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			f.Skipped = true
			f.Err = err
			c.log.Warn("offices: circuit open, skipping source",
				zap.String("source", src.Name()), zap.String("state", state))
		case err != nil:
			if ctx.Err() != nil {
				return fetches, out
			}
			f.Err = err
			c.log.Warn("offices: source failed",
				zap.String("source", src.Name()),
				zap.String("state", state),
				zap.String("error_type", resilience.ClassifyError(err)),
				zap.Error(err),
			)
		default:
			f.Records = len(recs)
			out = append(out, recs...)
			c.log.Debug("offices: fetched",
				zap.String("source", src.Name()),
				zap.String("state", state),
				zap.Int("records", len(recs)),
			)
		}
		fetches = append(fetches, f)
	}
	return fetches, out
}

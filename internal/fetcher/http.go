package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/office-scraper/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Retry overrides the backoff schedule (tests).
	Retry *resilience.RetryConfig
}

// HTTPFetcher downloads over HTTP, retrying transient failures.
type HTTPFetcher struct {
	client *resty.Client
	retry  resilience.RetryConfig
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "office-scraper/1.0"
	}

	retry := resilience.DefaultRetryConfig().WithAttempts(opts.MaxRetries)
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.OnRetry = resilience.RetryLogger("http", "download")

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &HTTPFetcher{client: client, retry: retry}
}

// Download fetches rawURL into memory. Input spreadsheets are small, and
// XLSX parsing needs random access anyway.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		resp, err := f.client.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			return nil, eris.Wrapf(err, "http: get %s", rawURL)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode()) {
			return nil, resilience.NewTransientError(
				eris.Errorf("http: status %d from %s", resp.StatusCode(), rawURL), resp.StatusCode())
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, eris.Errorf("http: unexpected status %d from %s", resp.StatusCode(), rawURL)
		}
		return resp.Body(), nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("http: downloaded", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	return io.NopCloser(bytes.NewReader(body)), nil
}

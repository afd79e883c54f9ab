package render

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StaticOptions configures a StaticRenderer.
type StaticOptions struct {
	UserAgent string
	// HTTPClient replaces the underlying transport client (tests).
	HTTPClient *http.Client
}

// StaticRenderer fetches pages over plain HTTP without executing scripts.
// It suits sources whose content is present in the served markup.
type StaticRenderer struct {
	client *resty.Client

	mu          sync.Mutex
	body        []byte
	contentType string
	closed      bool
}

// NewStatic creates a StaticRenderer.
func NewStatic(opts StaticOptions) *StaticRenderer {
	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client.SetHeader("User-Agent", ua)
	client.SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &StaticRenderer{client: client}
}

// Navigate performs a GET and keeps the body for CurrentDocument. The previous
// page is discarded even when the navigation fails.
func (s *StaticRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &FatalError{Err: ErrClosed}
	}
	s.body = nil
	s.contentType = ""
	s.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return &NavigationError{URL: url, StatusCode: resp.StatusCode(), Err: eris.New(resp.Status())}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = resp.Body()
	s.contentType = resp.Header().Get("Content-Type")
	return nil
}

// CurrentDocument parses the last fetched body, decoding it to UTF-8.
func (s *StaticRenderer) CurrentDocument(_ context.Context) (*goquery.Document, error) {
	s.mu.Lock()
	body, contentType, closed := s.body, s.contentType, s.closed
	s.mu.Unlock()

	if closed {
		return nil, &FatalError{Err: ErrClosed}
	}
	if body == nil {
		return nil, ErrNoPage
	}

	doc, err := goquery.NewDocumentFromReader(decodeBody(body, contentType))
	if err != nil {
		return nil, eris.Wrap(err, "render: parse document")
	}
	return doc, nil
}

// Close marks the renderer closed. Idle connections are released.
func (s *StaticRenderer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.body = nil
	s.client.GetClient().CloseIdleConnections()
	return nil
}

// decodeBody honours a declared Content-Type charset. An absent or unknown
// charset falls back to sniffing the document (BOM, meta tags, UTF-8 check).
func decodeBody(body []byte, contentType string) io.Reader {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if enc, err := htmlindex.Get(params["charset"]); err == nil {
			return enc.NewDecoder().Reader(bytes.NewReader(body))
		}
	}

	enc, _, _ := charset.DetermineEncoding(body, contentType)
	return enc.NewDecoder().Reader(bytes.NewReader(body))
}

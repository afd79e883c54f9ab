package render

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// ChromeOptions configures a ChromeRenderer.
type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
}

// ChromeRenderer drives a single headless Chromium tab, so pages that build
// their content in JavaScript are extracted after rendering.
type ChromeRenderer struct {
	allocCancel context.CancelFunc
	browserCtx  context.Context

	mu     sync.Mutex
	loaded bool
	closed bool
}

// NewChrome launches a browser. The browser lives until Close or until ctx is
// cancelled.
func NewChrome(ctx context.Context, opts ChromeOptions) (*ChromeRenderer, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	allocOpts = append(allocOpts, chromedp.UserAgent(ua))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &FatalError{Err: eris.Wrap(err, "render: start chrome")}
	}

	return &ChromeRenderer{
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
	}, nil
}

// Navigate loads url in the tab. HTTP error statuses of the main document are
// reported as navigation failures.
func (c *ChromeRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := c.alive(); err != nil {
		return err
	}
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()

	runCtx, cancel := c.runContext(ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		if ferr := c.alive(); ferr != nil {
			return ferr
		}
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return &NavigationError{URL: url, Err: ctxErr}
		}
		return &NavigationError{URL: url, Err: err}
	}
	if resp != nil && resp.Status >= http.StatusBadRequest {
		return &NavigationError{URL: url, StatusCode: int(resp.Status), Err: eris.New(resp.StatusText)}
	}

	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// CurrentDocument snapshots the live DOM.
func (c *ChromeRenderer) CurrentDocument(ctx context.Context) (*goquery.Document, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		return nil, ErrNoPage
	}

	runCtx, cancel := c.runContext(ctx, 0)
	defer cancel()

	var outer string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &outer, chromedp.ByQuery)); err != nil {
		if ferr := c.alive(); ferr != nil {
			return nil, ferr
		}
		return nil, eris.Wrap(err, "render: read dom")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return nil, eris.Wrap(err, "render: parse document")
	}
	return doc, nil
}

// Close shuts the browser down.
func (c *ChromeRenderer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := chromedp.Cancel(c.browserCtx)
	c.allocCancel()
	if err != nil && c.browserCtx.Err() == nil {
		return eris.Wrap(err, "render: close chrome")
	}
	return nil
}

func (c *ChromeRenderer) alive() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return &FatalError{Err: ErrClosed}
	}
	if err := c.browserCtx.Err(); err != nil {
		return &FatalError{Err: eris.Wrap(err, "render: browser gone")}
	}
	return nil
}

// runContext derives a context from the browser tab that is also cancelled
// when the caller's ctx is done.
func (c *ChromeRenderer) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(c.browserCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(c.browserCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

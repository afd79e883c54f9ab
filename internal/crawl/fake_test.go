package crawl

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/office-scraper/internal/render"
)

type page struct {
	html  string
	err   error
	delay time.Duration
}

// fakeSite hands out renderers that serve canned pages.
type fakeSite struct {
	pages map[string]page

	created atomic.Int32
	closed  atomic.Int32
	// factoryErr makes the factory fail. With failFrom set, only calls
	// numbered failFrom and later fail, after factoryDelay.
	factoryErr   error
	failFrom     int32
	factoryDelay time.Duration
	calls        atomic.Int32

	mu      sync.Mutex
	visited []string
}

func (s *fakeSite) factory(_ context.Context) (render.Renderer, error) {
	n := s.calls.Add(1)
	if s.factoryErr != nil && n >= s.failFrom {
		if s.factoryDelay > 0 {
			time.Sleep(s.factoryDelay)
		}
		return nil, s.factoryErr
	}
	s.created.Add(1)
	return &fakeRenderer{site: s}, nil
}

func (s *fakeSite) visits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

type fakeRenderer struct {
	site    *fakeSite
	current *page
}

func (f *fakeRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	f.current = nil
	f.site.mu.Lock()
	f.site.visited = append(f.site.visited, url)
	f.site.mu.Unlock()

	p, ok := f.site.pages[url]
	if !ok {
		return &render.NavigationError{URL: url, StatusCode: 404}
	}
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return &render.NavigationError{URL: url, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	if p.err != nil {
		return p.err
	}
	f.current = &p
	return nil
}

func (f *fakeRenderer) CurrentDocument(context.Context) (*goquery.Document, error) {
	if f.current == nil {
		return nil, render.ErrNoPage
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.current.html))
}

func (f *fakeRenderer) Close() error {
	f.site.closed.Add(1)
	return nil
}

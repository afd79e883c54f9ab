// Package render loads pages and returns their final DOM after client-side
// rendering has settled.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Renderer drives a single page session.
type Renderer interface {
	// Navigate loads url, failing with a *NavigationError if the page cannot be
	// loaded within timeout, or a *FatalError if the renderer itself is gone.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// CurrentDocument returns the DOM of the last loaded page.
	CurrentDocument(ctx context.Context) (*goquery.Document, error)
	// Close releases the underlying resources.
	Close() error
}

// Factory creates a new Renderer. Used when crawling with several renderers.
type Factory func(ctx context.Context) (Renderer, error)

// ErrNoPage is returned by CurrentDocument before any successful navigation.
var ErrNoPage = eris.New("render: no page loaded")

// ErrClosed is returned after Close.
var ErrClosed = eris.New("render: renderer closed")

// NavigationError is a recoverable per-page failure: timeout, network error or
// a non-success response.
type NavigationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("navigate %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status, or 0 when no response arrived.
func (e *NavigationError) HTTPStatus() int {
	return e.StatusCode
}

// Timeout reports whether the failure was the navigation deadline.
func (e *NavigationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrRendererFatal matches every *FatalError through errors.Is.
var ErrRendererFatal = eris.New("render: renderer unavailable")

// FatalError means the renderer cannot process any further pages.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "render: fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (e *FatalError) Is(target error) bool {
	return target == ErrRendererFatal
}

// IsFatal reports whether err (or anything it wraps) is a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsNavigation reports whether err (or anything it wraps) is a *NavigationError.
func IsNavigation(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne)
}

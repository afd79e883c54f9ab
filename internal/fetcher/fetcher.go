// Package fetcher retrieves input spreadsheets from local paths, HTTP(S) and
// FTP locations and parses them into string rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download returns the body at url. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures Open.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// Open returns a reader for location, which may be a local path, an http(s)
// URL or an ftp URL.
func Open(ctx context.Context, location string, opts Options) (io.ReadCloser, error) {
	f, err := ForScheme(Scheme(location), opts)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %q", location)
	}
	return f.Download(ctx, location)
}

// ForScheme returns the Fetcher for a scheme as reported by Scheme. The empty
// scheme selects the local filesystem.
func ForScheme(scheme string, opts Options) (Fetcher, error) {
	switch scheme {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), nil
	case "":
		return FileFetcher{}, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", scheme)
	}
}

// FileFetcher opens local paths.
type FileFetcher struct{}

// Download opens path for reading.
func (FileFetcher) Download(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	return f, nil
}

// Scheme returns the lower-cased URL scheme of location, or "" for local
// paths. Single-letter schemes are treated as Windows drive letters.
func Scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Ext returns the lower-cased file extension of location, ignoring any URL
// query or fragment.
func Ext(location string) string {
	p := location
	if Scheme(location) != "" {
		if u, err := url.Parse(location); err == nil {
			p = u.Path
		}
	}
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.ContainsAny(p[i:], `/\`) {
		return ""
	}
	return strings.ToLower(p[i:])
}

package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("Link\n"), 0o644))

	rc, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "Link\n", string(data))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.Error(t, err)
}

func TestOpen_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Link\n"))
	}))
	defer srv.Close()

	rc, err := Open(context.Background(), srv.URL+"/in.csv", Options{})
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "Link\n", string(data))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "s3://bucket/in.csv", Options{})
	assert.Error(t, err)
}

func TestForScheme(t *testing.T) {
	f, err := ForScheme("https", Options{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = ForScheme("ftp", Options{})
	require.NoError(t, err)
	assert.IsType(t, &FTPFetcher{}, f)

	f, err = ForScheme("", Options{})
	require.NoError(t, err)
	assert.IsType(t, FileFetcher{}, f)

	_, err = ForScheme("s3", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported scheme "s3"`)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "", Scheme("data/in.csv"))
	assert.Equal(t, "", Scheme(`C:\data\in.csv`))
	assert.Equal(t, "https", Scheme("HTTPS://example.gov/in.csv"))
	assert.Equal(t, "ftp", Scheme("ftp://ftp.example.gov/in.csv"))
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".csv", Ext("data/in.csv"))
	assert.Equal(t, ".xlsx", Ext("data/Offices.XLSX"))
	assert.Equal(t, ".xlsx", Ext("https://example.gov/f/offices.xlsx?dl=1"))
	assert.Equal(t, "", Ext("data.d/offices"))
	assert.Equal(t, "", Ext("offices"))
}

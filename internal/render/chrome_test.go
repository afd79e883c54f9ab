package render

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chromePath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("OFFICES_CHROME_EXEC_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no chromium binary available")
	return ""
}

func TestChromeRenderer_RendersScript(t *testing.T) {
	path := chromePath(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><body><div id="root"></div>
<script>document.getElementById("root").innerHTML = '<div class="office-officials"><div class="official">Jane</div></div>';</script>
</body></html>`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	r, err := NewChrome(ctx, ChromeOptions{ExecPath: path, Headless: true})
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	require.NoError(t, r.Navigate(ctx, srv.URL, 30*time.Second))
	doc, err := r.CurrentDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane", doc.Find(".office-officials .official").Text())

	err = r.Navigate(ctx, srv.URL+"/missing", 30*time.Second)
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, http.StatusNotFound, navErr.StatusCode)

	require.NoError(t, r.Close())
	assert.True(t, IsFatal(r.Navigate(ctx, srv.URL, time.Second)))
}

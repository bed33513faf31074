package network

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadURLStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><style>body{}</style><script>alert(1)</script></head>
<body><h1>Title</h1><p>Fish &amp; chips</p><div>second</div></body></html>`)
	}))
	defer srv.Close()

	reader := NewURLReader(5*time.Second, "test-agent")
	resp, err := reader.ReadURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Contains(t, resp.Output, "Title")
	assert.Contains(t, resp.Output, "Fish & chips")
	assert.Contains(t, resp.Output, "second")
	assert.NotContains(t, resp.Output, "alert")
	assert.NotContains(t, resp.Output, "<p>")
}

func TestReadURLHTTPErrorIsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	resp, err := NewURLReader(5*time.Second, "ua").ReadURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "404")
}

func TestReadURLRejectsOtherSchemes(t *testing.T) {
	_, err := NewURLReader(time.Second, "ua").ReadURL(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only http and https")
}

const resultsPage = `<html><body>
<div class="result">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=x">The <b>Go</b> docs</a></h2>
  <a class="result__snippet" href="#">Documentation for the Go language.</a>
</div>
<div class="result">
  <h2><a class="result__a" href="https://example.com/plain">Plain link</a></h2>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "golang docs", r.PostForm.Get("q"))
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	searcher := NewDuckDuckGo(srv.URL, 5*time.Second, "ua")
	resp, err := searcher.Search(context.Background(), "golang docs")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "1. The Go docs\n   https://go.dev/doc/\n   Documentation for the Go language.\n2. Plain link\n   https://example.com/plain", resp.Output)
}

func TestDuckDuckGoNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>nothing</body></html>")
	}))
	defer srv.Close()

	resp, err := NewDuckDuckGo(srv.URL, time.Second, "ua").Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, `No results found for "zzz"`, resp.Output)

	_, err = NewDuckDuckGo(srv.URL, time.Second, "ua").Search(context.Background(), "  ")
	assert.Error(t, err)
}

func TestResolveRedirect(t *testing.T) {
	target := "https://example.com/a?b=c"
	assert.Equal(t, target, resolveRedirect("//duckduckgo.com/l/?uddg="+url.QueryEscape(target)))
	assert.Equal(t, "https://plain.example", resolveRedirect("https://plain.example"))
}

func TestTerminalRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell")
	}
	term := NewTerminal("sh", 10*time.Second)
	dir := t.TempDir()

	resp, err := term.Run(context.Background(), dir, "echo hello")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "hello", strings.TrimSpace(resp.Output))

	resp, err = term.Run(context.Background(), dir, "echo broken; exit 3")
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "status 3")
	assert.Contains(t, resp.Output, "broken")

	resp, err = term.Run(context.Background(), dir, "true")
	require.NoError(t, err)
	assert.Equal(t, "(no output)", resp.Output)

	_, err = term.Run(context.Background(), dir, "rm -rf /")
	assert.Error(t, err)
}

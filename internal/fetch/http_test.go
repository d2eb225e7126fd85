// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

const samplePage = `<!doctype html>
<html><head><title> Mango  Diseases </title><style>p{color:red}</style></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<h1>Common mango diseases</h1>
<p>Anthracnose is the most serious <b>fungal</b> disease of mango.</p>
<script>var tracking = "ignore me";</script>
<ul><li>Powdery mildew</li><li>Sooty mould</li></ul>
<table>
  <tr><th>Disease</th><th></th><th>Season</th></tr>
  <tr><td>Anthracnose</td><td>Fungal</td><td>Monsoon</td></tr>
  <tr><td>Broken row</td></tr>
  <tr><td>Powdery mildew</td><td>Fungal</td><td>Winter | Spring</td></tr>
</table>
<table><tr><td>layout only</td></tr></table>
</body></html>`

func TestParseHTML(t *testing.T) {
	page, err := ParseHTML([]byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Mango Diseases", page.Title)
	assert.Contains(t, page.Text, "Common mango diseases\nAnthracnose is the most serious fungal disease of mango.\nPowdery mildew\nSooty mould")
	assert.NotContains(t, page.Text, "tracking")
	assert.NotContains(t, page.Text, "About")

	wantTable := "| Disease | Column_1 | Season |\n| --- | --- | --- |\n| Anthracnose | Fungal | Monsoon |\n| Powdery mildew | Fungal | Winter / Spring |"
	assert.Equal(t, wantTable, page.Structured)
	assert.True(t, strings.HasSuffix(page.Text, wantTable))
	assert.NotContains(t, page.CleanedHTML, "<script")
	assert.Contains(t, page.RawHTML, "<script")
}

func TestParseHTMLFallsBackToBodyText(t *testing.T) {
	page, err := ParseHTML([]byte(`<html><body><div>line one</div>
<div>line two</div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", page.Text)
}

func TestHTTPBackendFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dataset-engine-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, samplePage)
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "a,b\n1,2\n")
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	b := NewHTTPBackend(types.FetchConfig{HTTPConfig: types.HTTPConfig{UserAgent: "dataset-engine-test"}, RateLimit: 100})
	b.Client = ts.Client()

	page, err := b.Fetch(context.Background(), ts.URL+"/page", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Mango Diseases", page.Title)

	page, err = b.Fetch(context.Background(), ts.URL+"/plain", time.Second)
	require.NoError(t, err)
	content, rep := page.Best()
	assert.Equal(t, RepRaw, rep)
	assert.Equal(t, "a,b\n1,2\n", content)

	_, err = b.Fetch(context.Background(), ts.URL+"/pdf", time.Second)
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = b.Fetch(context.Background(), ts.URL+"/missing", time.Second)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestHTTPBackendBodyLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("x", 1000))
	}))
	defer ts.Close()

	b := &HTTPBackend{Client: ts.Client(), MaxBodyBytes: 100}
	page, err := b.Fetch(context.Background(), ts.URL, time.Second)
	require.NoError(t, err)
	assert.Len(t, page.RawHTML, 100)
}

func TestHTTPBackendTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	b := &HTTPBackend{Client: ts.Client()}
	_, err := b.Fetch(context.Background(), ts.URL, 50*time.Millisecond)
	assert.Error(t, err)
}

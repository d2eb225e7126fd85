// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// noiseSelectors are removed before text extraction.
const noiseSelectors = "script, style, noscript, iframe, svg, template, nav, header, footer, aside, button"

// blockSelectors are the elements whose text becomes one line each.
const blockSelectors = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, pre, blockquote, caption, figcaption"

// HTTPBackend fetches pages over HTTP and parses HTML with goquery.
type HTTPBackend struct {
	Client       *http.Client
	UserAgent    string
	MaxBodyBytes int64

	// Limiter throttles outbound requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// NewHTTPBackend builds a backend from cfg.
func NewHTTPBackend(cfg types.FetchConfig) *HTTPBackend {
	b := &HTTPBackend{
		Client:       &http.Client{},
		UserAgent:    cfg.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.RateLimit > 0 {
		b.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}
	return b
}

// Fetch downloads url and returns its representations. HTML pages yield
// extracted text with tables rendered as markdown, the tables alone as
// structured content, the cleaned body markup, and the raw markup. Other
// text responses are returned as raw content only.
func (b *HTTPBackend) Fetch(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return Page{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8,*/*;q=0.5")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	var body io.Reader = resp.Body
	if b.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, b.MaxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "" && !strings.Contains(mediaType, "html") {
		if strings.HasPrefix(mediaType, "text/") || strings.Contains(mediaType, "json") {
			return Page{RawHTML: string(raw)}, nil
		}
		return Page{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return ParseHTML(raw)
}

// ParseHTML extracts a Page from an HTML document.
func ParseHTML(raw []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Page{}, fmt.Errorf("parse document: %w", err)
	}

	page := Page{
		Title:   collapse(doc.Find("title").First().Text()),
		RawHTML: string(raw),
	}

	doc.Find(noiseSelectors).Remove()

	var tables []string
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if md := TableMarkdown(t); md != "" {
			tables = append(tables, md)
		}
	})
	page.Structured = strings.Join(tables, "\n\n")

	body := doc.Find("body")
	if html, err := body.Html(); err == nil {
		page.CleanedHTML = strings.TrimSpace(html)
	}

	body.Find("table").Remove()
	var lines []string
	body.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are emitted by their innermost element.
		if s.Find(blockSelectors).Length() > 0 {
			return
		}
		if line := collapse(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		for _, l := range strings.Split(body.Text(), "\n") {
			if l = collapse(l); l != "" {
				lines = append(lines, l)
			}
		}
	}

	text := strings.Join(lines, "\n")
	if page.Structured != "" {
		text = strings.TrimSpace(text + "\n\n" + page.Structured)
	}
	page.Text = text
	return page, nil
}

// TableMarkdown renders an HTML table with at least two rows as a markdown
// table. The first row is the header; blank header cells become Column_N
// where N is the zero-based position. Rows whose cell count differs from
// the header are skipped. Returns "" when no data row survives.
func TableMarkdown(t *goquery.Selection) string {
	rows := t.Find("tr")
	if rows.Length() < 2 {
		return ""
	}

	var header []string
	rows.First().Find("th, td").Each(func(i int, c *goquery.Selection) {
		name := cellText(c)
		if name == "" {
			name = fmt.Sprintf("Column_%d", i)
		}
		header = append(header, name)
	})
	if len(header) == 0 {
		return ""
	}

	var body [][]string
	rows.Slice(1, rows.Length()).Each(func(_ int, r *goquery.Selection) {
		var cells []string
		r.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, cellText(c))
		})
		if len(cells) == len(header) {
			body = append(body, cells)
		}
	})
	if len(body) == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range body {
		writeRow(r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cellText(c *goquery.Selection) string {
	return strings.ReplaceAll(collapse(c.Text()), "|", "/")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

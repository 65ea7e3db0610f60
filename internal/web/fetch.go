package web

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageChars     = 3000
)

// contentSelectors are tried in order; the first match supplies the page text
var contentSelectors = []string{
	"article",
	"main",
	".content",
	".post-content",
	".judgment-text",
	".case-content",
	".legal-content",
	`div[class*="content"]`,
	`div[class*="article"]`,
}

var whitespace = regexp.MustCompile(`\s+`)

// Fetcher downloads pages politely and extracts their main text
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewFetcher creates a fetcher allowing requestsPerSecond page loads.
// A non-positive rate disables limiting.
func NewFetcher(httpClient *http.Client, requestsPerSecond float64) *Fetcher {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Fetcher{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		userAgent:  defaultUserAgent,
	}
}

// Fetch loads pageURL and returns its title and cleaned text
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Snippet, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	title, content := extract(doc)
	return &Snippet{
		Title:   title,
		Content: content,
		Source:  hostOf(pageURL),
		URL:     pageURL,
	}, nil
}

// extract pulls the title and main text out of a parsed page
func extract(doc *goquery.Document) (string, string) {
	doc.Find("script, style, nav, footer, header, aside, .sidebar").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No title"
	}

	var content string
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			content = textOf(sel)
			break
		}
	}
	if content == "" {
		content = textOf(doc.Find("body"))
	}

	runes := []rune(content)
	if len(runes) > maxPageChars {
		content = string(runes[:maxPageChars])
	}
	return title, content
}

// textOf joins the text nodes of sel with single spaces
func textOf(sel *goquery.Selection) string {
	var parts []string
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			parts = append(parts, s.Text())
			return
		}
		parts = append(parts, textOf(s))
	})
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.Join(parts, " "), " "))
}

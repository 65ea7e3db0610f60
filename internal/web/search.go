package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	braveEndpoint      = "https://api.search.brave.com/res/v1/web/search"
)

// Result is one search engine hit
type Result struct {
	Title       string
	URL         string
	Description string
}

// Searcher queries a web search engine
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// DuckDuckGo scrapes the keyless HTML endpoint
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// NewDuckDuckGo creates a searcher. An empty endpoint selects the public one.
func NewDuckDuckGo(httpClient *http.Client, endpoint string) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	return &DuckDuckGo{endpoint: endpoint, httpClient: httpClient, userAgent: defaultUserAgent}
}

// Search returns up to limit organic results
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title:       strings.TrimSpace(link.Text()),
			URL:         target,
			Description: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return len(results) < limit
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// Brave uses the Brave Search API
type Brave struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewBrave creates a searcher. An empty endpoint selects the public API.
func NewBrave(httpClient *http.Client, apiKey, endpoint string) *Brave {
	if endpoint == "" {
		endpoint = braveEndpoint
	}
	return &Brave{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search returns up to limit results
func (b *Brave) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("count", strconv.Itoa(min(max(limit, 1), 20)))
	params.Add("country", "IN")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var searchResp braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(searchResp.Web.Results))
	for _, r := range searchResp.Web.Results {
		if len(results) == limit {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return results, nil
}

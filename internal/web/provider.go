package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

const (
	minTrustedResults = 3
	minContentChars   = 100
)

// Config tunes the web provider
type Config struct {
	Engine            string
	BraveAPIKey       string
	MaxResults        int
	RequestsPerSecond float64
	TrustedSources    []string
	Timeout           time.Duration
}

// Provider answers queries with extracted pages, trusted sources first
type Provider struct {
	searcher   Searcher
	fetcher    *Fetcher
	trusted    []string
	maxResults int
	logger     *log.Logger
}

// New builds a provider with the engine named in cfg
func New(cfg Config, logger *log.Logger) (*Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var searcher Searcher
	switch strings.ToLower(cfg.Engine) {
	case "", "duckduckgo":
		searcher = NewDuckDuckGo(client, "")
	case "brave":
		if cfg.BraveAPIKey == "" {
			return nil, errors.New("brave search requires an API key")
		}
		searcher = NewBrave(client, cfg.BraveAPIKey, "")
	default:
		return nil, fmt.Errorf("unknown search engine %q", cfg.Engine)
	}

	return NewProvider(searcher, NewFetcher(client, cfg.RequestsPerSecond), cfg.TrustedSources, cfg.MaxResults, logger), nil
}

// NewProvider wires a provider from its parts. Empty trusted sources
// select the defaults; a non-positive maxResults selects 5.
func NewProvider(searcher Searcher, fetcher *Fetcher, trusted []string, maxResults int, logger *log.Logger) *Provider {
	if len(trusted) == 0 {
		trusted = DefaultTrustedSources
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Provider{
		searcher:   searcher,
		fetcher:    fetcher,
		trusted:    trusted,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search finds, fetches and extracts pages relevant to query.
// It returns ErrNoResults when no page had enough text.
func (p *Provider) Search(ctx context.Context, query string) ([]Snippet, error) {
	qt := DetectQueryType(query)
	enriched := EnrichQuery(query, qt)
	p.logger.Debug("web search", "type", qt, "query", enriched)

	urls, err := p.findURLs(ctx, enriched)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ErrNoResults
	}

	var snippets []Snippet
	for _, u := range urls {
		snippet, err := p.fetcher.Fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("failed to extract page", "url", u, "err", err)
			continue
		}
		if utf8.RuneCountInString(snippet.Content) <= minContentChars {
			continue
		}
		snippets = append(snippets, *snippet)
	}

	if len(snippets) == 0 {
		return nil, ErrNoResults
	}
	return snippets, nil
}

// findURLs searches trusted sites first and tops up from a broader query
func (p *Provider) findURLs(ctx context.Context, query string) ([]string, error) {
	results, err := p.searcher.Search(ctx, p.siteQuery(query), p.maxResults*2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, r := range results {
		if len(urls) == p.maxResults {
			break
		}
		if IsTrusted(r.URL, p.trusted) && !seen[r.URL] {
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}

	if len(urls) < minTrustedResults {
		broader, err := p.searcher.Search(ctx, query+" Supreme Court India High Court judgment 2024 2023", 10)
		if err != nil {
			p.logger.Warn("broader web search failed", "err", err)
			return urls, nil
		}
		for _, r := range broader {
			if len(urls) == p.maxResults {
				break
			}
			if !seen[r.URL] {
				seen[r.URL] = true
				urls = append(urls, r.URL)
			}
		}
	}

	return urls, nil
}

// siteQuery restricts query to the first three trusted sources
func (p *Provider) siteQuery(query string) string {
	sites := p.trusted
	if len(sites) > 3 {
		sites = sites[:3]
	}
	clauses := make([]string, len(sites))
	for i, s := range sites {
		clauses[i] = "site:" + s
	}
	return query + " India law judgment case " + strings.Join(clauses, " OR ")
}

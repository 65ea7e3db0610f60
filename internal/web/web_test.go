package web_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexis-ai/cli/internal/web"
)

func TestDetectQueryType(t *testing.T) {
	tests := []struct {
		query string
		want  web.QueryType
	}{
		{"latest amendments to the IT Act", web.QueryRecent},
		{"Kesavananda Bharati case", web.QueryCaseLaw},
		{"what is anticipatory bail", web.QueryDefinition},
		{"Define tort", web.QueryDefinition},
		{"punishment for theft", web.QueryGeneral},
		// recent wins over case law
		{"recent judgment on privacy", web.QueryRecent},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, web.DetectQueryType(tt.query))
		})
	}
}

func TestEnrichQuery(t *testing.T) {
	assert.Equal(t, "bail 2024 2023 latest judgment", web.EnrichQuery("bail", web.QueryRecent))
	assert.Equal(t, "bail Supreme Court High Court precedent", web.EnrichQuery("bail", web.QueryCaseLaw))
	assert.Equal(t, "bail Indian law definition legal meaning", web.EnrichQuery("bail", web.QueryDefinition))
	assert.Equal(t, "bail", web.EnrichQuery("bail", web.QueryGeneral))
}

func TestIsTrusted(t *testing.T) {
	assert.True(t, web.IsTrusted("https://www.livelaw.in/top-stories/x", web.DefaultTrustedSources))
	assert.True(t, web.IsTrusted("https://indiankanoon.org/doc/1/", web.DefaultTrustedSources))
	assert.False(t, web.IsTrusted("https://example.com/livelaw.in", web.DefaultTrustedSources))
	assert.False(t, web.IsTrusted("::not a url", web.DefaultTrustedSources))
}

const resultsPage = `<html><body>
<div class="result results_links result--ad"><a class="result__a" href="https://ads.example.com/">Ad</a></div>
<div class="result results_links"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.livelaw.in%2Fbail-ruling&amp;rut=abc">Bail ruling</a>
  <a class="result__snippet">Supreme Court on bail</a></div>
<div class="result results_links"><a class="result__a" href="https://indiankanoon.org/doc/42/">Doc 42</a></div>
<div class="result results_links"><a class="result__a" href="https://barandbench.com/x">Third</a></div>
</body></html>`

func TestDuckDuckGo(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("q")
		_, _ = io.WriteString(w, resultsPage)
	}))
	defer server.Close()

	ddg := web.NewDuckDuckGo(server.Client(), server.URL)
	results, err := ddg.Search(context.Background(), "bail reform", 2)
	require.NoError(t, err)

	assert.Equal(t, "bail reform", gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, web.Result{Title: "Bail ruling", URL: "https://www.livelaw.in/bail-ruling", Description: "Supreme Court on bail"}, results[0])
	assert.Equal(t, "https://indiankanoon.org/doc/42/", results[1].URL)
}

func TestBrave(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "privacy", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		_, _ = io.WriteString(w, `{"web":{"results":[
			{"title":"Puttaswamy","url":"https://scobserver.in/cases/puttaswamy","description":"privacy"},
			{"title":"Other","url":"https://example.com","description":""}]}}`)
	}))
	defer server.Close()

	brave := web.NewBrave(server.Client(), "secret", server.URL)
	results, err := brave.Search(context.Background(), "privacy", 1)
	require.NoError(t, err)
	assert.Equal(t, []web.Result{{Title: "Puttaswamy", URL: "https://scobserver.in/cases/puttaswamy", Description: "privacy"}}, results)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	_, err = web.NewBrave(failing.Client(), "secret", failing.URL).Search(context.Background(), "x", 3)
	assert.ErrorContains(t, err, "429")
}

func TestFetch(t *testing.T) {
	body := strings.Repeat("The court held that bail is the rule. ", 120)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			fmt.Fprintf(w, `<html><head><title> Bail Ruling </title><style>.x{}</style></head><body>
				<header>Site header</header><nav>Menu</nav>
				<article><h1>Ruling</h1><p>%s</p><script>track()</script></article>
				<footer>Copyright</footer></body></html>`, body)
		case "/plain":
			_, _ = io.WriteString(w, `<html><body><p>Just   some
				body text</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := web.NewFetcher(server.Client(), 0)

	snippet, err := fetcher.Fetch(context.Background(), server.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "Bail Ruling", snippet.Title)
	assert.True(t, strings.HasPrefix(snippet.Content, "Ruling The court held"))
	assert.NotContains(t, snippet.Content, "track()")
	assert.NotContains(t, snippet.Content, "Menu")
	assert.Len(t, []rune(snippet.Content), 3000)
	u, _ := url.Parse(server.URL)
	assert.Equal(t, u.Host, snippet.Source)

	plain, err := fetcher.Fetch(context.Background(), server.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "No title", plain.Title)
	assert.Equal(t, "Just some body text", plain.Content)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
}

type fakeSearcher struct {
	mu      sync.Mutex
	byQuery func(query string) ([]web.Result, error)
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) ([]web.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	results, err := f.byQuery(query)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, err
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	long := strings.Repeat("Section 437 lays down when bail may be taken. ", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			_, _ = io.WriteString(w, `<html><title>Short</title><body><main>too short</main></body></html>`)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprintf(w, `<html><title>Page %s</title><body><main>%s</main></body></html>`, r.URL.Path, long)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProviderSearch(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard)
	server := pageServer(t)
	trusted := []string{"127.0.0.1"}

	t.Run("trusted results are fetched and short pages dropped", func(t *testing.T) {
		searcher := &fakeSearcher{byQuery: func(q string) ([]web.Result, error) {
			return []web.Result{
				{URL: server.URL + "/a"},
				{URL: server.URL + "/short"},
				{URL: server.URL + "/broken"},
				{URL: server.URL + "/b"},
			}, nil
		}}
		p := web.NewProvider(searcher, web.NewFetcher(server.Client(), 0), trusted, 5, logger)

		snippets, err := p.Search(ctx, "what is bail")
		require.NoError(t, err)
		require.Len(t, snippets, 2)
		assert.Equal(t, "Page /a", snippets[0].Title)
		assert.Equal(t, "Page /b", snippets[1].Title)

		require.Len(t, searcher.queries, 1, "four trusted urls need no broader search")
		assert.True(t, strings.HasPrefix(searcher.queries[0], "what is bail Indian law definition legal meaning India law judgment case site:127.0.0.1"))
	})

	t.Run("broader search tops up few trusted results", func(t *testing.T) {
		searcher := &fakeSearcher{byQuery: func(q string) ([]web.Result, error) {
			if strings.Contains(q, "site:") {
				return []web.Result{{URL: server.URL + "/trusted"}, {URL: "https://example.com/untrusted"}}, nil
			}
			return []web.Result{{URL: server.URL + "/trusted"}, {URL: server.URL + "/extra"}}, nil
		}}
		p := web.NewProvider(searcher, web.NewFetcher(server.Client(), 0), trusted, 5, logger)

		snippets, err := p.Search(ctx, "bail conditions")
		require.NoError(t, err)
		require.Len(t, snippets, 2)
		assert.Equal(t, server.URL+"/trusted", snippets[0].URL)
		assert.Equal(t, server.URL+"/extra", snippets[1].URL)
		require.Len(t, searcher.queries, 2)
		assert.Equal(t, "bail conditions Supreme Court India High Court judgment 2024 2023", searcher.queries[1])
	})

	t.Run("nothing usable", func(t *testing.T) {
		searcher := &fakeSearcher{byQuery: func(string) ([]web.Result, error) {
			return []web.Result{{URL: server.URL + "/short"}}, nil
		}}
		p := web.NewProvider(searcher, web.NewFetcher(server.Client(), 0), trusted, 5, logger)
		_, err := p.Search(ctx, "x")
		assert.ErrorIs(t, err, web.ErrNoResults)

		empty := web.NewProvider(&fakeSearcher{byQuery: func(string) ([]web.Result, error) { return nil, nil }},
			web.NewFetcher(server.Client(), 0), trusted, 5, logger)
		_, err = empty.Search(ctx, "x")
		assert.ErrorIs(t, err, web.ErrNoResults)
	})

	t.Run("search failure", func(t *testing.T) {
		searcher := &fakeSearcher{byQuery: func(string) ([]web.Result, error) {
			return nil, errors.New("blocked")
		}}
		p := web.NewProvider(searcher, web.NewFetcher(server.Client(), 0), trusted, 5, logger)
		_, err := p.Search(ctx, "x")
		assert.ErrorIs(t, err, web.ErrSearchFailed)
		assert.ErrorContains(t, err, "blocked")
	})
}

func TestNewValidatesEngine(t *testing.T) {
	logger := log.New(io.Discard)

	_, err := web.New(web.Config{Engine: "duckduckgo"}, logger)
	assert.NoError(t, err)

	_, err = web.New(web.Config{Engine: "brave"}, logger)
	assert.Error(t, err)

	_, err = web.New(web.Config{Engine: "altavista"}, logger)
	assert.Error(t, err)
}

package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/web"
)

// DefaultTopK is how many records are retrieved per query
const DefaultTopK = 3

// DefaultKeywords mark a query as asking for recent information
var DefaultKeywords = []string{
	"recent", "latest", "new", "2024", "2023", "current", "today",
	"recent case", "recent judgment", "latest ruling", "new law",
	"current status", "updated", "now", "present",
}

// markdownTokens are removed from completions in this order
var markdownTokens = []string{"**", "*", "###", "##", "#"}

// Completer turns a prompt into a completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleteFunc adapts a plain function to Completer
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f
func (f CompleteFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// WebProvider looks up recent material for a query
type WebProvider interface {
	Search(ctx context.Context, query string) ([]web.Snippet, error)
}

// RouterConfig tunes query handling
type RouterConfig struct {
	TopK     int
	Keywords []string
}

// Answer is the outcome of a routed query
type Answer struct {
	Question        string
	Text            string
	NeedsWeb        bool
	DocumentContext string
	WebContext      string
	Prompt          string
	Sources         []string
	Hits            []index.SearchResult
}

// Router decides whether a query needs web context, assembles the prompt
// and asks the completer exactly once.
type Router struct {
	retriever *Retriever
	completer Completer
	web       WebProvider
	builder   *ContextBuilder
	topK      int
	keywords  []string
	logger    *log.Logger
}

// NewRouter creates a router. webProvider may be nil, in which case
// queries that ask for recent information get no web context.
func NewRouter(retriever *Retriever, completer Completer, webProvider WebProvider, builder *ContextBuilder, cfg RouterConfig, logger *log.Logger) *Router {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	lowered := lowerKeywords(cfg.Keywords)
	if len(lowered) == 0 {
		lowered = lowerKeywords(DefaultKeywords)
	}
	if builder == nil {
		builder = NewContextBuilder(0, 0)
	}

	return &Router{
		retriever: retriever,
		completer: completer,
		web:       webProvider,
		builder:   builder,
		topK:      topK,
		keywords:  lowered,
		logger:    logger,
	}
}

// lowerKeywords drops blank keywords, which would match every query
func lowerKeywords(keywords []string) []string {
	var lowered []string
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(k))
	}
	return lowered
}

// NeedsWeb reports whether query mentions any keyword, ignoring case
func (r *Router) NeedsWeb(query string) bool {
	q := strings.ToLower(query)
	for _, keyword := range r.keywords {
		if strings.Contains(q, keyword) {
			return true
		}
	}
	return false
}

// Answer runs the full pipeline for query against idx. Web failures
// degrade into the web context; retrieval and completion failures are
// returned as *QueryError.
func (r *Router) Answer(ctx context.Context, idx *index.Index, query string) (*Answer, error) {
	result, err := r.retriever.Retrieve(ctx, idx, query, r.topK)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotReady) {
			return nil, newQueryError(KindIndexNotReady, err)
		}
		return nil, newQueryError(KindRetrieval, err)
	}

	answer := &Answer{
		Question:        query,
		NeedsWeb:        r.NeedsWeb(query),
		DocumentContext: r.builder.BuildDocumentContext(result),
		Sources:         result.Sources(),
		Hits:            result.Hits,
	}

	answer.WebContext = r.webContext(ctx, query, answer.NeedsWeb)
	answer.Prompt = r.builder.BuildPrompt(answer.DocumentContext, answer.WebContext, query)

	completion, err := r.completer.Complete(ctx, answer.Prompt)
	if err != nil {
		return nil, newQueryError(KindProvider, err)
	}
	answer.Text = Sanitize(completion)

	return answer, nil
}

func (r *Router) webContext(ctx context.Context, query string, needsWeb bool) string {
	if !needsWeb || r.web == nil {
		return r.builder.NoWebSearch()
	}

	r.logger.Info("searching web for recent information", "query", query)
	snippets, err := r.web.Search(ctx, query)
	if errors.Is(err, web.ErrNoResults) {
		return r.builder.BuildWebContext(nil)
	}
	if err != nil {
		r.logger.Warn("web search failed", "err", err)
		return r.builder.BuildWebError(err)
	}
	return r.builder.BuildWebContext(snippets)
}

// Sanitize strips markdown emphasis and heading markers
func Sanitize(text string) string {
	for _, token := range markdownTokens {
		text = strings.ReplaceAll(text, token, "")
	}
	return text
}

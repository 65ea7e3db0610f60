// Package web finds recent legal material on the open web: it searches,
// prefers trusted Indian legal sources and extracts readable page text.
package web

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrNoResults is returned when nothing usable was found
	ErrNoResults = errors.New("no web results")
	// ErrSearchFailed is returned when the search engine could not be queried
	ErrSearchFailed = errors.New("web search failed")
)

// DefaultTrustedSources are preferred when picking result pages
var DefaultTrustedSources = []string{
	"indiankanoon.org",
	"main.sci.gov.in",
	"livelaw.in",
	"barandbench.com",
	"theleaflet.in",
	"scobserver.in",
	"legally.co.in",
	"taxguru.in",
}

// Snippet is the extracted text of one web page
type Snippet struct {
	Title   string
	Content string
	Source  string
	URL     string
}

// QueryType steers how a query is enriched before searching
type QueryType string

const (
	QueryRecent     QueryType = "recent"
	QueryCaseLaw    QueryType = "case_law"
	QueryDefinition QueryType = "definition"
	QueryGeneral    QueryType = "general"
)

var (
	recentKeywords     = []string{"recent", "latest", "new", "2024", "2023", "current", "today"}
	caseKeywords       = []string{"case", "judgment", "ruling", "decision", "precedent"}
	definitionKeywords = []string{"what is", "define", "definition", "meaning", "explain"}
)

// DetectQueryType classifies query; the first matching group wins
func DetectQueryType(query string) QueryType {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, recentKeywords):
		return QueryRecent
	case containsAny(q, caseKeywords):
		return QueryCaseLaw
	case containsAny(q, definitionKeywords):
		return QueryDefinition
	default:
		return QueryGeneral
	}
}

// EnrichQuery appends search terms suited to the query type
func EnrichQuery(query string, qt QueryType) string {
	switch qt {
	case QueryRecent:
		return query + " 2024 2023 latest judgment"
	case QueryCaseLaw:
		return query + " Supreme Court High Court precedent"
	case QueryDefinition:
		return query + " Indian law definition legal meaning"
	default:
		return query
	}
}

// IsTrusted reports whether rawURL's host contains one of sources
func IsTrusted(rawURL string, sources []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, s := range sources {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

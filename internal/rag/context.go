package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lexis-ai/cli/internal/web"
)

const (
	// DefaultSnippetChars bounds each web snippet in the prompt
	DefaultSnippetChars = 400
	// DefaultMaxSnippets is how many web results reach the prompt
	DefaultMaxSnippets = 2

	truncationMarker = "..."

	noWebSearch   = "No web search performed - using statutory documents only."
	noWebResults  = "No recent web information found for this query."
	webHeader     = "Recent Legal Information from Web Sources:\n\n"
	webErrorLabel = "Error retrieving web information: "
)

const promptTemplate = "You are an expert Indian legal assistant. Use both the provided context from Indian legal documents and recent web information to answer questions accurately and comprehensively.\n\n" +
	"Context from Legal Documents:\n" +
	"---------------------\n" +
	"%s\n" +
	"---------------------\n\n" +
	"Recent Web Information:\n" +
	"---------------------\n" +
	"%s\n" +
	"---------------------\n\n" +
	"Instructions:\n" +
	"1. Provide accurate legal information based on Indian law and recent developments\n" +
	"2. Cite specific sections, articles, or acts when possible\n" +
	"3. Include recent case law and judgments when relevant\n" +
	"4. If information conflicts, prioritize statutory law but mention recent judicial interpretations\n" +
	"5. Always remind users to consult with a qualified lawyer for legal advice\n" +
	"6. Be precise and professional in your responses\n" +
	"7. Clearly distinguish between established law and recent developments\n" +
	"8. Format your response in plain text without markdown formatting\n\n" +
	"Query: %s\n" +
	"Answer: "

// ContextBuilder formats retrieval results and web snippets for the prompt
type ContextBuilder struct {
	snippetChars int
	maxSnippets  int
}

// NewContextBuilder creates a new context builder. Non-positive values select the defaults.
func NewContextBuilder(snippetChars, maxSnippets int) *ContextBuilder {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}
	if maxSnippets <= 0 {
		maxSnippets = DefaultMaxSnippets
	}
	return &ContextBuilder{
		snippetChars: snippetChars,
		maxSnippets:  maxSnippets,
	}
}

// BuildDocumentContext joins the retrieved texts, best match first
func (cb *ContextBuilder) BuildDocumentContext(result *RetrievalResult) string {
	return strings.Join(result.Texts(), "\n")
}

// BuildWebContext renders up to maxSnippets results as a numbered block
func (cb *ContextBuilder) BuildWebContext(snippets []web.Snippet) string {
	if len(snippets) == 0 {
		return noWebResults
	}

	var b strings.Builder
	b.WriteString(webHeader)
	for i, s := range snippets {
		if i == cb.maxSnippets {
			break
		}
		fmt.Fprintf(&b, "%d. %s (Source: %s)\n", i+1, s.Title, s.Source)
		fmt.Fprintf(&b, "   %s\n\n", Truncate(s.Content, cb.snippetChars))
	}
	return b.String()
}

// BuildWebError renders a failed web lookup so the query can continue
func (cb *ContextBuilder) BuildWebError(err error) string {
	return webErrorLabel + err.Error()
}

// NoWebSearch is the web context used when the query does not ask for recent information
func (cb *ContextBuilder) NoWebSearch() string {
	return noWebSearch
}

// BuildPrompt fills the legal prompt template
func (cb *ContextBuilder) BuildPrompt(documentContext, webContext, query string) string {
	return fmt.Sprintf(promptTemplate, documentContext, webContext, query)
}

// Truncate cuts s to n characters and appends a marker when anything was cut
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + truncationMarker
}

package rag

import (
	"context"
	"fmt"

	"github.com/lexis-ai/cli/internal/index"
)

// ErrInvalidK is returned for a non-positive result count
var ErrInvalidK = index.ErrInvalidK

// Retriever embeds queries and ranks index records against them
type Retriever struct {
	embedder index.Embedder
}

// NewRetriever creates a new retriever
func NewRetriever(embedder index.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// RetrievalResult contains the ranked records for a query
type RetrievalResult struct {
	Hits []index.SearchResult
}

// Texts returns the record texts, best match first
func (r *RetrievalResult) Texts() []string {
	texts := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		texts[i] = h.Document.Text
	}
	return texts
}

// Sources returns distinct filenames in rank order
func (r *RetrievalResult) Sources() []string {
	seen := make(map[string]bool)
	var sources []string
	for _, h := range r.Hits {
		name := h.Document.Metadata.Filename
		if !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}
	return sources
}

// Retrieve returns the min(k, n) records most similar to query
func (r *Retriever) Retrieve(ctx context.Context, idx *index.Index, query string, k int) (*RetrievalResult, error) {
	if !idx.Ready() {
		return nil, index.ErrIndexNotReady
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	hits, err := idx.Search(queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	return &RetrievalResult{Hits: hits}, nil
}

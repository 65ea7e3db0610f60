package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Embedder turns text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedFunc adapts a plain function to Embedder
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f
func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Index holds document records, one embedding per record and the
// cosine similarity structure over them. It is immutable once created.
type Index struct {
	docs    []Document
	vectors [][]float32
	norms   []float32
	byID    map[string]int
	dim     int
}

// BuildOptions tunes index construction
type BuildOptions struct {
	// Workers bounds concurrent embedding calls
	Workers int
}

// Build embeds every document and assembles a new index.
// Vectors keep the position of their document regardless of completion order.
func Build(ctx context.Context, docs []Document, emb Embedder, opts BuildOptions) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyIndex
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	vectors := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range docs {
		g.Go(func() error {
			vec, err := emb.Embed(gctx, docs[i].Text)
			if err != nil {
				return fmt.Errorf("failed to embed %s (chunk %d): %w",
					docs[i].Metadata.Filename, docs[i].Metadata.ChunkIndex, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(docs, vectors)
}

// New assembles an index from documents and their vectors (same order)
func New(docs []Document, vectors [][]float32) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("%d documents but %d vectors", len(docs), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector for %s", ErrDimensionMismatch, docs[0].ID)
	}

	idx := &Index{
		docs:    make([]Document, len(docs)),
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float32, len(vectors)),
		byID:    make(map[string]int, len(docs)),
		dim:     dim,
	}
	copy(idx.docs, docs)

	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: %s has %d dimensions, expected %d",
				ErrDimensionMismatch, docs[i].ID, len(vec), dim)
		}
		if _, dup := idx.byID[docs[i].ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, docs[i].ID)
		}
		idx.byID[docs[i].ID] = i
		idx.vectors[i] = append([]float32(nil), vec...)
		idx.norms[i] = norm(vec)
	}

	return idx, nil
}

// Restore rebuilds an index from its persisted parts.
// Any inconsistency is reported as ErrCacheCorrupt.
func Restore(st Structure, docs []Document, vectors map[string][]float32) (*Index, error) {
	if st.Version != structureVersion {
		return nil, Corrupt("unsupported index structure version %d", st.Version)
	}
	if st.Metric != metricCosine {
		return nil, Corrupt("unsupported metric %q", st.Metric)
	}
	if len(st.IDs) == 0 {
		return nil, Corrupt("index structure lists no documents")
	}
	if len(docs) != len(st.IDs) || len(vectors) != len(st.IDs) {
		return nil, Corrupt("structure lists %d documents, found %d documents and %d vectors",
			len(st.IDs), len(docs), len(vectors))
	}

	byID := make(map[string]Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	ordered := make([]Document, 0, len(st.IDs))
	orderedVecs := make([][]float32, 0, len(st.IDs))
	for _, id := range st.IDs {
		d, ok := byID[id]
		if !ok {
			return nil, Corrupt("document %s missing from document store", id)
		}
		vec, ok := vectors[id]
		if !ok {
			return nil, Corrupt("vector for %s missing from vector store", id)
		}
		if len(vec) != st.Dimension {
			return nil, Corrupt("vector for %s has %d dimensions, expected %d", id, len(vec), st.Dimension)
		}
		ordered = append(ordered, d)
		orderedVecs = append(orderedVecs, vec)
	}

	idx, err := New(ordered, orderedVecs)
	if err != nil {
		return nil, Corrupt("%v", err)
	}
	return idx, nil
}

// Ready reports whether the index can serve searches
func (idx *Index) Ready() bool {
	return idx != nil && len(idx.docs) > 0
}

// Len returns the number of records
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Dimension returns the embedding dimensionality
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// Documents returns the records in index order
func (idx *Index) Documents() []Document {
	if idx == nil {
		return nil
	}
	out := make([]Document, len(idx.docs))
	copy(out, idx.docs)
	return out
}

// Vector returns a copy of the embedding stored for id
func (idx *Index) Vector(id string) ([]float32, bool) {
	if idx == nil {
		return nil, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return append([]float32(nil), idx.vectors[i]...), true
}

// Get looks a record up by id
func (idx *Index) Get(id string) (Document, bool) {
	if idx == nil {
		return Document{}, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return Document{}, false
	}
	return idx.docs[i], true
}

// Sources returns the distinct source paths in first-seen order
func (idx *Index) Sources() []string {
	if idx == nil {
		return nil
	}
	seen := make(map[string]bool)
	var sources []string
	for _, d := range idx.docs {
		if !seen[d.Metadata.SourcePath] {
			seen[d.Metadata.SourcePath] = true
			sources = append(sources, d.Metadata.SourcePath)
		}
	}
	return sources
}

// Structure returns the persistable similarity structure
func (idx *Index) Structure() Structure {
	ids := make([]string, len(idx.docs))
	for i, d := range idx.docs {
		ids[i] = d.ID
	}
	return Structure{
		Version:   structureVersion,
		Metric:    metricCosine,
		Dimension: idx.dim,
		IDs:       ids,
	}
}

// Vectors returns every embedding keyed by document id
func (idx *Index) Vectors() map[string][]float32 {
	out := make(map[string][]float32, len(idx.docs))
	for i, d := range idx.docs {
		out[d.ID] = append([]float32(nil), idx.vectors[i]...)
	}
	return out
}

// Search returns the k records most similar to query, best first.
// Equal scores keep index order, so results are deterministic.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if !idx.Ready() {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	qNorm := norm(query)
	scores := make([]float32, len(idx.docs))
	order := make([]int, len(idx.docs))
	for i, vec := range idx.vectors {
		order[i] = i
		if qNorm == 0 || idx.norms[i] == 0 {
			continue
		}
		scores[i] = dot(query, vec) / (qNorm * idx.norms[i])
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]SearchResult, 0, k)
	for _, i := range order[:k] {
		results = append(results, SearchResult{Document: idx.docs[i], Score: scores[i]})
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	return float32(math.Sqrt(float64(dot(v, v))))
}

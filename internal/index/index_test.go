package index_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/testutil"
)

func makeDocs(texts ...string) []index.Document {
	docs := make([]index.Document, len(texts))
	for i, text := range texts {
		docs[i] = index.Document{
			ID:   fmt.Sprintf("doc-%d", i),
			Text: text,
			Metadata: index.Metadata{
				Filename:     fmt.Sprintf("file%d.txt", i),
				SourcePath:   fmt.Sprintf("/corpus/file%d.txt", i),
				DocumentType: index.DocumentTypeLegal,
				SourceLength: len(text),
			},
		}
	}
	return docs
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("one embedding per document", func(t *testing.T) {
		emb := testutil.NewHashEmbedder(32)
		docs := makeDocs("article 21 right to life", "contract act offer", "penal code theft")

		idx, err := index.Build(ctx, docs, emb, index.BuildOptions{Workers: 2})
		require.NoError(t, err)

		assert.Equal(t, 3, idx.Len())
		assert.Equal(t, 32, idx.Dimension())
		assert.Equal(t, 3, emb.Calls())
		assert.True(t, idx.Ready())
	})

	t.Run("keeps record order regardless of completion order", func(t *testing.T) {
		docs := makeDocs("a", "b", "c", "d", "e", "f")
		// earlier documents finish last
		emb := index.EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			delay := time.Duration('g'-text[0]) * time.Millisecond
			time.Sleep(delay)
			return []float32{float32(text[0]), 1}, nil
		})

		idx, err := index.Build(ctx, docs, emb, index.BuildOptions{Workers: 6})
		require.NoError(t, err)

		for _, d := range idx.Documents() {
			vec, ok := idx.Vector(d.ID)
			require.True(t, ok)
			assert.Equal(t, float32(d.Text[0]), vec[0])
		}
		assert.Equal(t, docs, idx.Documents())
	})

	t.Run("empty corpus", func(t *testing.T) {
		_, err := index.Build(ctx, nil, testutil.NewHashEmbedder(8), index.BuildOptions{})
		assert.ErrorIs(t, err, index.ErrEmptyIndex)
	})

	t.Run("embedding failure aborts the build", func(t *testing.T) {
		providerErr := errors.New("provider down")
		var calls atomic.Int32
		emb := index.EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			if calls.Add(1) == 2 {
				return nil, providerErr
			}
			return []float32{1, 0}, nil
		})

		idx, err := index.Build(ctx, makeDocs("a", "b", "c"), emb, index.BuildOptions{Workers: 1})
		assert.Nil(t, idx)
		assert.ErrorIs(t, err, providerErr)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		emb := index.EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			if text == "b" {
				return []float32{1, 2, 3}, nil
			}
			return []float32{1, 2}, nil
		})
		_, err := index.Build(ctx, makeDocs("a", "b"), emb, index.BuildOptions{})
		assert.ErrorIs(t, err, index.ErrDimensionMismatch)
	})
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	docs := makeDocs("a", "b")
	docs[1].ID = docs[0].ID

	_, err := index.New(docs, [][]float32{{1}, {2}})
	assert.ErrorIs(t, err, index.ErrDuplicateID)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	emb := testutil.NewHashEmbedder(64)
	docs := makeDocs(
		"article 21 protection of life and personal liberty",
		"indian contract act offer acceptance consideration",
		"theft is defined in the penal code",
		"article 14 equality before law",
		"bail provisions in criminal procedure",
	)
	idx, err := index.Build(ctx, docs, emb, index.BuildOptions{})
	require.NoError(t, err)

	query, err := emb.Embed(ctx, "what does article 21 protect life")
	require.NoError(t, err)

	t.Run("most relevant first", func(t *testing.T) {
		results, err := idx.Search(query, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "doc-0", results[0].Document.ID)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	})

	t.Run("result count is min(k, n) without duplicates", func(t *testing.T) {
		for k := 1; k <= 8; k++ {
			results, err := idx.Search(query, k)
			require.NoError(t, err)
			assert.Len(t, results, min(k, idx.Len()))

			seen := map[string]bool{}
			for _, r := range results {
				assert.False(t, seen[r.Document.ID], "duplicate %s", r.Document.ID)
				seen[r.Document.ID] = true
				_, ok := idx.Get(r.Document.ID)
				assert.True(t, ok)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := idx.Search(query, 5)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := idx.Search(query, 5)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("zero query vector keeps index order", func(t *testing.T) {
		results, err := idx.Search(make([]float32, 64), 3)
		require.NoError(t, err)
		assert.Equal(t, "doc-0", results[0].Document.ID)
		assert.Equal(t, "doc-1", results[1].Document.ID)
		assert.Equal(t, "doc-2", results[2].Document.ID)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := idx.Search(query, 0)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("wrong query dimension", func(t *testing.T) {
		_, err := idx.Search([]float32{1, 2}, 1)
		assert.ErrorIs(t, err, index.ErrDimensionMismatch)
	})

	t.Run("nil index is not ready", func(t *testing.T) {
		var empty *index.Index
		_, err := empty.Search(query, 1)
		assert.ErrorIs(t, err, index.ErrIndexNotReady)
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	emb := testutil.NewHashEmbedder(16)
	idx, err := index.Build(ctx, makeDocs("one", "two", "three"), emb, index.BuildOptions{})
	require.NoError(t, err)

	t.Run("round trip keeps order", func(t *testing.T) {
		docs := idx.Documents()
		// shuffle storage order
		docs[0], docs[2] = docs[2], docs[0]

		restored, err := index.Restore(idx.Structure(), docs, idx.Vectors())
		require.NoError(t, err)
		assert.Equal(t, idx.Documents(), restored.Documents())
	})

	tests := []struct {
		name   string
		mutate func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32)
	}{
		{
			name: "missing vector",
			mutate: func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32) {
				delete(vecs, "doc-1")
				vecs["stray"] = make([]float32, 16)
			},
		},
		{
			name: "missing document",
			mutate: func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32) {
				*docs = (*docs)[:2]
			},
		},
		{
			name: "wrong dimension",
			mutate: func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32) {
				vecs["doc-0"] = []float32{1}
			},
		},
		{
			name: "unknown version",
			mutate: func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32) {
				st.Version = 99
			},
		},
		{
			name: "empty structure",
			mutate: func(st *index.Structure, docs *[]index.Document, vecs map[string][]float32) {
				st.IDs = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := idx.Structure()
			docs := idx.Documents()
			vecs := idx.Vectors()
			tt.mutate(&st, &docs, vecs)

			_, err := index.Restore(st, docs, vecs)
			assert.ErrorIs(t, err, index.ErrCacheCorrupt)
		})
	}
}

func TestNewManifest(t *testing.T) {
	docs := makeDocs("a", "b")
	docs[1].Metadata.SourcePath = docs[0].Metadata.SourcePath
	idx, err := index.New(docs, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("defaults to the clock and the record sources", func(t *testing.T) {
		m := index.NewManifest(idx, index.BuildInfo{}, now)
		assert.Equal(t, now, m.BuiltAt)
		assert.Equal(t, 2, m.DocumentCount)
		assert.Equal(t, 2, m.Dimension)
		assert.Equal(t, []string{"/corpus/file0.txt"}, m.Sources)
	})

	t.Run("build start and corpus files win", func(t *testing.T) {
		started := now.Add(-time.Hour)
		files := []string{"/corpus/file0.txt", "/corpus/empty.txt"}
		m := index.NewManifest(idx, index.BuildInfo{StartedAt: started, Files: files}, now)
		assert.Equal(t, started, m.BuiltAt)
		assert.Equal(t, files, m.Sources)
	})
}

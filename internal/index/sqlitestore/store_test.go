package sqlitestore_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/index/sqlitestore"
	"github.com/lexis-ai/cli/internal/testutil"
)

func buildIndex(t *testing.T, texts ...string) *index.Index {
	t.Helper()
	docs := make([]index.Document, len(texts))
	for i, text := range texts {
		docs[i] = index.Document{
			ID:   fmt.Sprintf("id-%d", i),
			Text: text,
			Metadata: index.Metadata{
				Filename:     fmt.Sprintf("act%d.pdf", i),
				SourcePath:   fmt.Sprintf("/docs/act%d.pdf", i),
				DocumentType: index.DocumentTypeLegal,
				ChunkIndex:   i,
				SourceLength: len(text) * 2,
			},
		}
	}
	idx, err := index.Build(context.Background(), docs, testutil.NewHashEmbedder(24), index.BuildOptions{})
	require.NoError(t, err)
	return idx
}

func openStore(t *testing.T, opts ...sqlitestore.Option) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "index.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	builtAt := time.Date(2024, 7, 9, 8, 30, 0, 987654321, time.UTC)
	store := openStore(t, sqlitestore.WithClock(func() time.Time { return builtAt }))

	m, err := store.Manifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	idx := buildIndex(t, "freedom of speech", "right to privacy", "right to education")
	manifest, err := store.Persist(ctx, idx, index.BuildInfo{})
	require.NoError(t, err)
	assert.Equal(t, 3, manifest.DocumentCount)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx.Documents(), loaded.Documents())
	for _, d := range idx.Documents() {
		want, _ := idx.Vector(d.ID)
		got, ok := loaded.Vector(d.ID)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	reread, err := store.Manifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, reread)
	assert.True(t, reread.BuiltAt.Equal(builtAt))
	assert.Equal(t, idx.Sources(), reread.Sources)
}

func TestPersistReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Persist(ctx, buildIndex(t, "one", "two", "three"), index.BuildInfo{})
	require.NoError(t, err)
	_, err = store.Persist(ctx, buildIndex(t, "four"), index.BuildInfo{})
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, "four", loaded.Documents()[0].Text)
}

func TestLoadWithoutSnapshot(t *testing.T) {
	_, err := openStore(t).Load(context.Background())
	assert.ErrorIs(t, err, index.ErrCacheCorrupt)
}

func TestLoadDetectsTampering(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	_, err = store.Persist(ctx, buildIndex(t, "a", "b"), index.BuildInfo{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM embeddings WHERE document_id = 'id-1'")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err = sqlitestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, index.ErrCacheCorrupt)
}

func TestPersistRequiresReadyIndex(t *testing.T) {
	_, err := openStore(t).Persist(context.Background(), nil, index.BuildInfo{})
	assert.ErrorIs(t, err, index.ErrIndexNotReady)
}

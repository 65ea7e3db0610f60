package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/index/pgstore"
	"github.com/lexis-ai/cli/internal/testutil"
)

// These tests need a PostgreSQL server with the vector extension available.
func openStore(t *testing.T, opts ...pgstore.Option) *pgstore.Store {
	t.Helper()
	url := os.Getenv("LEXIS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEXIS_TEST_DATABASE_URL not set")
	}
	store, err := pgstore.New(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	builtAt := time.Date(2024, 1, 26, 9, 0, 0, 0, time.UTC)
	store := openStore(t, pgstore.WithClock(func() time.Time { return builtAt }))

	docs := make([]index.Document, 3)
	for i, text := range []string{"writ of habeas corpus", "public interest litigation", "doctrine of basic structure"} {
		docs[i] = index.Document{
			ID:   fmt.Sprintf("pg-%d", i),
			Text: text,
			Metadata: index.Metadata{
				Filename:     "constitution.pdf",
				SourcePath:   "/docs/constitution.pdf",
				DocumentType: index.DocumentTypeLegal,
				ChunkIndex:   i,
				SourceLength: 900,
			},
		}
	}
	idx, err := index.Build(ctx, docs, testutil.NewHashEmbedder(16), index.BuildOptions{})
	require.NoError(t, err)

	_, err = store.Persist(ctx, idx, index.BuildInfo{})
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx.Documents(), loaded.Documents())

	m, err := store.Manifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.BuiltAt.Equal(builtAt))
	assert.Equal(t, []string{"/docs/constitution.pdf"}, m.Sources)
}

func TestPersistRequiresReadyIndex(t *testing.T) {
	store := openStore(t)
	_, err := store.Persist(context.Background(), nil, index.BuildInfo{})
	assert.ErrorIs(t, err, index.ErrIndexNotReady)
}

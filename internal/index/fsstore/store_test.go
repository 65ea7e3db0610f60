package fsstore_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/index/fsstore"
	"github.com/lexis-ai/cli/internal/testutil"
)

func buildIndex(t *testing.T, emb index.Embedder, texts ...string) *index.Index {
	t.Helper()
	docs := make([]index.Document, len(texts))
	for i, text := range texts {
		docs[i] = index.Document{
			ID:   fmt.Sprintf("id-%d", i),
			Text: text,
			Metadata: index.Metadata{
				Filename:     fmt.Sprintf("f%d.txt", i),
				SourcePath:   fmt.Sprintf("/docs/f%d.txt", i),
				DocumentType: index.DocumentTypeLegal,
				SourceLength: len(text),
			},
		}
	}
	idx, err := index.Build(context.Background(), docs, emb, index.BuildOptions{})
	require.NoError(t, err)
	return idx
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := testutil.NewHashEmbedder(32)
	idx := buildIndex(t, emb,
		"article 21 right to life",
		"section 420 cheating",
		"article 370 special status",
	)

	builtAt := time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)
	store := fsstore.New(t.TempDir(), fsstore.WithClock(func() time.Time { return builtAt }))

	manifest, err := store.Persist(ctx, idx, index.BuildInfo{})
	require.NoError(t, err)
	assert.True(t, manifest.BuiltAt.Equal(builtAt))
	assert.Equal(t, 3, manifest.DocumentCount)

	for _, name := range []string{fsstore.DocStoreFile, fsstore.VectorStoreFile, fsstore.IndexStoreFile, fsstore.ManifestFile} {
		assert.FileExists(t, filepath.Join(store.Location(), name))
	}

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx.Documents(), loaded.Documents())

	query, err := emb.Embed(ctx, "right to life")
	require.NoError(t, err)
	want, err := idx.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	reread, err := store.Manifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, reread)
	assert.True(t, reread.BuiltAt.Equal(builtAt))
	assert.Equal(t, manifest.Sources, reread.Sources)
}

func TestPersistUsesBuildInfo(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := fsstore.New(t.TempDir(), fsstore.WithClock(func() time.Time { return clock }))

	started := clock.Add(-10 * time.Minute)
	files := []string{"/docs/f0.txt", "/docs/notes.csv"}
	_, err := store.Persist(ctx, buildIndex(t, testutil.NewHashEmbedder(8), "a b"), index.BuildInfo{StartedAt: started, Files: files})
	require.NoError(t, err)

	m, err := store.Manifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.BuiltAt.Equal(started), "manifest must carry the build start, not the commit time")
	assert.Equal(t, files, m.Sources)
}

func TestManifestAbsent(t *testing.T) {
	store := fsstore.New(filepath.Join(t.TempDir(), "never-written"))

	m, err := store.Manifest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, index.ErrCacheCorrupt)
}

func TestLoadCorrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		break_ func(dir string) error
	}{
		{
			name:   "missing document store",
			break_: func(dir string) error { return os.Remove(filepath.Join(dir, fsstore.DocStoreFile)) },
		},
		{
			name:   "missing vector store",
			break_: func(dir string) error { return os.Remove(filepath.Join(dir, fsstore.VectorStoreFile)) },
		},
		{
			name:   "missing index store",
			break_: func(dir string) error { return os.Remove(filepath.Join(dir, fsstore.IndexStoreFile)) },
		},
		{
			name: "garbage vector store",
			break_: func(dir string) error {
				return os.WriteFile(filepath.Join(dir, fsstore.VectorStoreFile), []byte("{not json"), 0644)
			},
		},
		{
			name: "truncated document store",
			break_: func(dir string) error {
				return os.WriteFile(filepath.Join(dir, fsstore.DocStoreFile), []byte("[]"), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := fsstore.New(dir)
			_, err := store.Persist(ctx, buildIndex(t, testutil.NewHashEmbedder(8), "a b", "c d"), index.BuildInfo{})
			require.NoError(t, err)

			require.NoError(t, tt.break_(dir))

			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, index.ErrCacheCorrupt)
		})
	}

	t.Run("unreadable manifest", func(t *testing.T) {
		dir := t.TempDir()
		store := fsstore.New(dir)
		_, err := store.Persist(ctx, buildIndex(t, testutil.NewHashEmbedder(8), "a b"), index.BuildInfo{})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fsstore.ManifestFile), []byte("???"), 0644))

		_, err = store.Manifest(ctx)
		assert.ErrorIs(t, err, index.ErrCacheCorrupt)
	})
}

func TestFailedPersistLeavesNoManifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := fsstore.New(dir)
	idx := buildIndex(t, testutil.NewHashEmbedder(8), "first", "second")

	_, err := store.Persist(ctx, idx, index.BuildInfo{})
	require.NoError(t, err)

	// a directory in place of the vector store makes the rename fail
	vectorPath := filepath.Join(dir, fsstore.VectorStoreFile)
	require.NoError(t, os.Remove(vectorPath))
	require.NoError(t, os.MkdirAll(filepath.Join(vectorPath, "blocker"), 0755))

	_, err = store.Persist(ctx, idx, index.BuildInfo{})
	require.Error(t, err)

	m, err := store.Manifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "a failed persist must not leave a manifest")
}

func TestPersistRequiresReadyIndex(t *testing.T) {
	_, err := fsstore.New(t.TempDir()).Persist(context.Background(), nil, index.BuildInfo{})
	assert.ErrorIs(t, err, index.ErrIndexNotReady)
}

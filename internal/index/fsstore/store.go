// Package fsstore persists index snapshots as JSON files in a directory.
//
// Layout:
//
//	<dir>/docstore.json      document records
//	<dir>/vector_store.json  embeddings keyed by document id
//	<dir>/index_store.json   similarity structure (order, dimension, metric)
//	<dir>/manifest.json      build timestamp, written last
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lexis-ai/cli/internal/index"
)

const (
	DocStoreFile    = "docstore.json"
	VectorStoreFile = "vector_store.json"
	IndexStoreFile  = "index_store.json"
	ManifestFile    = "manifest.json"
)

// Store is a directory-backed index.Store
type Store struct {
	dir string
	now func() time.Time
}

var _ index.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to stamp manifests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store rooted at dir. The directory is created on first Persist.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the storage directory
func (s *Store) Location() string {
	return s.dir
}

// Persist writes all artifacts and commits the manifest last
func (s *Store) Persist(ctx context.Context, idx *index.Index, info index.BuildInfo) (*index.Manifest, error) {
	if !idx.Ready() {
		return nil, index.ErrIndexNotReady
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	// An older manifest must not vouch for artifacts we are about to replace.
	if err := os.Remove(s.path(ManifestFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to invalidate manifest: %w", err)
	}

	artifacts := []struct {
		name  string
		value any
	}{
		{DocStoreFile, idx.Documents()},
		{VectorStoreFile, idx.Vectors()},
		{IndexStoreFile, idx.Structure()},
	}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.writeJSON(a.name, a.value); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", a.name, err)
		}
	}

	manifest := index.NewManifest(idx, info, s.now())
	if err := s.writeJSON(ManifestFile, manifest); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}
	return manifest, nil
}

// Load reconstructs the index from disk
func (s *Store) Load(ctx context.Context) (*index.Index, error) {
	manifest, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, index.Corrupt("no manifest in %s", s.dir)
	}

	var (
		docs      []index.Document
		vectors   map[string][]float32
		structure index.Structure
	)
	if err := s.readJSON(DocStoreFile, &docs); err != nil {
		return nil, err
	}
	if err := s.readJSON(VectorStoreFile, &vectors); err != nil {
		return nil, err
	}
	if err := s.readJSON(IndexStoreFile, &structure); err != nil {
		return nil, err
	}

	return index.Restore(structure, docs, vectors)
}

// Manifest returns the current manifest, or nil when none was committed
func (s *Store) Manifest(_ context.Context) (*index.Manifest, error) {
	var m index.Manifest
	err := s.readJSON(ManifestFile, &m)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Close is a no-op for the filesystem store
func (s *Store) Close() error {
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// writeJSON writes through a temp file so readers never see a torn artifact
func (s *Store) writeJSON(name string, value any) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

// readJSON reports missing files as fs.ErrNotExist wrapped in ErrCacheCorrupt
func (s *Store) readJSON(name string, value any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s missing: %w", index.ErrCacheCorrupt, name, err)
		}
		return index.Corrupt("failed to read %s: %v", name, err)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return index.Corrupt("failed to parse %s: %v", name, err)
	}
	return nil
}

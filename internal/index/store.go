package index

import (
	"context"
)

// Store persists and reloads index snapshots.
//
// Persist writes the document store, the vector store and the index structure
// and only then commits a manifest built from info (see NewManifest). A failed
// Persist never leaves a manifest behind. Load fails with ErrCacheCorrupt when
// any part is missing or unreadable. Manifest returns (nil, nil) when no
// snapshot exists.
type Store interface {
	Persist(ctx context.Context, idx *Index, info BuildInfo) (*Manifest, error)
	Load(ctx context.Context) (*Index, error)
	Manifest(ctx context.Context) (*Manifest, error)
	Location() string
	Close() error
}

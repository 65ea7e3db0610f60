// Package chatbot ties the corpus, the cached index and the query router
// together behind one object with a simple lifecycle.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lexis-ai/cli/internal/documents"
	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/rag"
	"github.com/lexis-ai/cli/internal/staleness"
)

// ErrNotInitialized is returned by queries issued before a successful Initialize
var ErrNotInitialized = errors.New("chatbot not initialized: call Initialize first")

// CorpusLoader reads every record of the documents directory
type CorpusLoader interface {
	LoadAll(ctx context.Context, dir string) ([]index.Document, error)
}

// Origin tells where the served index came from
type Origin string

const (
	OriginNone  Origin = ""
	OriginCache Origin = "cache"
	OriginBuild Origin = "build"
)

// Options wires a Bot
type Options struct {
	DocumentsDir string
	Workers      int
	Loader       CorpusLoader
	Store        index.Store
	Oracle       *staleness.Oracle
	Embedder     index.Embedder
	Router       *rag.Router
	Logger       *log.Logger
}

// DocumentInfo summarizes one source file of the index
type DocumentInfo struct {
	Filename     string
	DocumentType string
	TextLength   int
}

// Status describes the cache and the served index
type Status struct {
	DocumentsDir  string
	StoreLocation string
	Manifest      *index.Manifest
	Stale         bool
	Changes       []staleness.Change
	Initialized   bool
	Origin        Origin
	Records       int
	LoadedAt      time.Time
}

// Bot answers legal questions from an indexed corpus
type Bot struct {
	opts   Options
	logger *log.Logger

	mu       sync.RWMutex
	idx      *index.Index
	origin   Origin
	loadedAt time.Time
}

// New creates a bot. Nothing is read until Initialize.
func New(opts Options) *Bot {
	return &Bot{opts: opts, logger: opts.Logger}
}

// Initialize serves the cached index when it is still fresh and otherwise
// rebuilds it from the documents directory. A corrupt cache is reported,
// never silently rebuilt. Failing to cache a fresh build only logs a warning.
func (b *Bot) Initialize(ctx context.Context, forceRebuild bool) error {
	if !forceRebuild {
		loaded, err := b.loadCached(ctx)
		if err != nil {
			return err
		}
		if loaded {
			return nil
		}
	}

	return b.build(ctx)
}

// Rebuild discards the cache and indexes the corpus again
func (b *Bot) Rebuild(ctx context.Context) error {
	return b.Initialize(ctx, true)
}

func (b *Bot) loadCached(ctx context.Context) (bool, error) {
	manifest, err := b.opts.Store.Manifest(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read index manifest: %w", err)
	}
	if b.opts.Oracle.IsStale(b.opts.DocumentsDir, manifest) {
		b.logger.Info("index cache is stale, rebuilding")
		return false, nil
	}

	idx, err := b.opts.Store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load cached index: %w", err)
	}

	b.swap(idx, OriginCache)
	b.logger.Info("loaded cached index", "records", idx.Len(), "built_at", manifest.BuiltAt.Format(time.RFC3339))
	return true, nil
}

func (b *Bot) build(ctx context.Context) error {
	b.logger.Info("processing documents", "dir", b.opts.DocumentsDir)

	// the manifest describes the corpus as it was before reading started
	startedAt := time.Now()
	files, err := documents.CorpusFiles(b.opts.DocumentsDir)
	if err != nil {
		return err
	}

	docs, err := b.opts.Loader.LoadAll(ctx, b.opts.DocumentsDir)
	if err != nil {
		return err
	}

	b.logger.Info("building vector index", "records", len(docs))
	idx, err := index.Build(ctx, docs, b.opts.Embedder, index.BuildOptions{Workers: b.opts.Workers})
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if _, err := b.opts.Store.Persist(ctx, idx, index.BuildInfo{StartedAt: startedAt, Files: files}); err != nil {
		b.logger.Warn("could not cache index", "location", b.opts.Store.Location(), "err", err)
	} else {
		b.logger.Info("index cached", "location", b.opts.Store.Location())
	}

	b.swap(idx, OriginBuild)
	return nil
}

func (b *Bot) swap(idx *index.Index, origin Origin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idx = idx
	b.origin = origin
	b.loadedAt = time.Now()
}

func (b *Bot) current() *index.Index {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.idx
}

// Query answers question from the served index
func (b *Bot) Query(ctx context.Context, question string) (*rag.Answer, error) {
	idx := b.current()
	if idx == nil {
		return nil, ErrNotInitialized
	}
	return b.opts.Router.Answer(ctx, idx, question)
}

// DocumentInfo lists every source file of the served index, in index order
func (b *Bot) DocumentInfo() ([]DocumentInfo, error) {
	idx := b.current()
	if idx == nil {
		return nil, ErrNotInitialized
	}

	seen := make(map[string]bool)
	var infos []DocumentInfo
	for _, d := range idx.Documents() {
		if seen[d.Metadata.SourcePath] {
			continue
		}
		seen[d.Metadata.SourcePath] = true
		infos = append(infos, DocumentInfo{
			Filename:     d.Metadata.Filename,
			DocumentType: d.Metadata.DocumentType,
			TextLength:   d.Metadata.SourceLength,
		})
	}
	return infos, nil
}

// Status reports cache freshness without changing anything
func (b *Bot) Status(ctx context.Context) (*Status, error) {
	manifest, err := b.opts.Store.Manifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index manifest: %w", err)
	}

	changes := b.opts.Oracle.Changed(b.opts.DocumentsDir, manifest)

	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Status{
		DocumentsDir:  b.opts.DocumentsDir,
		StoreLocation: b.opts.Store.Location(),
		Manifest:      manifest,
		Stale:         len(changes) > 0,
		Changes:       changes,
		Initialized:   b.idx != nil,
		Origin:        b.origin,
		Records:       b.idx.Len(),
		LoadedAt:      b.loadedAt,
	}, nil
}

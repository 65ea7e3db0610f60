package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lexis-ai/cli/internal/index"
)

// Store is an index.Store backed by PostgreSQL
type Store struct {
	pool     *pgxpool.Pool
	location string
	now      func() time.Time
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

// New connects to the database and prepares the schema
func New(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	pool, err := connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	cfg := pool.Config().ConnConfig
	s := &Store{
		pool:     pool,
		location: fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Location returns the database address without credentials
func (s *Store) Location() string {
	return s.location
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Persist replaces the stored snapshot with idx in a single transaction
func (s *Store) Persist(ctx context.Context, idx *index.Index, info index.BuildInfo) (*index.Manifest, error) {
	if !idx.Ready() {
		return nil, index.ErrIndexNotReady
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`TRUNCATE lexis_manifest, lexis_index_structure, lexis_documents`); err != nil {
		return nil, fmt.Errorf("failed to clear snapshot: %w", err)
	}

	docs := idx.Documents()
	batch := &pgx.Batch{}
	for i, d := range docs {
		vec, _ := idx.Vector(d.ID)
		m := d.Metadata
		batch.Queue(
			`INSERT INTO lexis_documents
			 (id, position, text, filename, source_path, document_type, chunk_index, source_length, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			d.ID, i, d.Text, m.Filename, m.SourcePath, m.DocumentType, m.ChunkIndex, m.SourceLength,
			pgvector.NewVector(vec),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range docs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to insert documents: %w", err)
	}

	structure, err := json.Marshal(idx.Structure())
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO lexis_index_structure (id, data) VALUES (1, $1)`, structure); err != nil {
		return nil, fmt.Errorf("failed to save index structure: %w", err)
	}

	manifest := index.NewManifest(idx, info, s.now())
	if _, err := tx.Exec(ctx,
		`INSERT INTO lexis_manifest (id, built_at, document_count, dimension, sources)
		 VALUES (1, $1, $2, $3, $4)`,
		manifest.BuiltAt, manifest.DocumentCount, manifest.Dimension, manifest.Sources,
	); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return manifest, nil
}

// Manifest returns the committed manifest, or nil when none exists
func (s *Store) Manifest(ctx context.Context) (*index.Manifest, error) {
	var m index.Manifest
	err := s.pool.QueryRow(ctx,
		`SELECT built_at, document_count, dimension, sources FROM lexis_manifest WHERE id = 1`,
	).Scan(&m.BuiltAt, &m.DocumentCount, &m.Dimension, &m.Sources)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, index.Corrupt("failed to read manifest: %v", err)
	}
	return &m, nil
}

// Load reconstructs the stored index
func (s *Store) Load(ctx context.Context) (*index.Index, error) {
	manifest, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, index.Corrupt("no manifest in %s", s.location)
	}

	var data []byte
	if err := s.pool.QueryRow(ctx,
		`SELECT data FROM lexis_index_structure WHERE id = 1`).Scan(&data); err != nil {
		return nil, index.Corrupt("failed to read index structure: %v", err)
	}
	var structure index.Structure
	if err := json.Unmarshal(data, &structure); err != nil {
		return nil, index.Corrupt("failed to parse index structure: %v", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, text, filename, source_path, document_type, chunk_index, source_length, embedding
		 FROM lexis_documents ORDER BY position`)
	if err != nil {
		return nil, index.Corrupt("failed to read documents: %v", err)
	}
	defer rows.Close()

	var docs []index.Document
	vectors := make(map[string][]float32)
	for rows.Next() {
		var (
			d   index.Document
			vec pgvector.Vector
		)
		m := &d.Metadata
		if err := rows.Scan(&d.ID, &d.Text, &m.Filename, &m.SourcePath,
			&m.DocumentType, &m.ChunkIndex, &m.SourceLength, &vec); err != nil {
			return nil, index.Corrupt("failed to scan document: %v", err)
		}
		docs = append(docs, d)
		vectors[d.ID] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, index.Corrupt("failed to read documents: %v", err)
	}

	return index.Restore(structure, docs, vectors)
}

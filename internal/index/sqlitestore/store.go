// Package sqlitestore persists index snapshots in a single SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lexis-ai/cli/internal/index"
)

// Store is an index.Store backed by SQLite. The whole snapshot, manifest
// included, is replaced inside one transaction.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
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

// Open opens (creating if needed) the database at path
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps :memory: databases on one connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

// Location returns the database path
func (s *Store) Location() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist replaces the stored snapshot with idx
func (s *Store) Persist(ctx context.Context, idx *index.Index, info index.BuildInfo) (*index.Manifest, error) {
	if !idx.Ready() {
		return nil, index.ErrIndexNotReady
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"manifest", "index_structure", "embeddings", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, position, text, filename, source_path, document_type, chunk_index, source_length)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer docStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO embeddings (document_id, vector) VALUES (?, ?)")
	if err != nil {
		return nil, err
	}
	defer vecStmt.Close()

	for i, d := range idx.Documents() {
		m := d.Metadata
		if _, err := docStmt.ExecContext(ctx, d.ID, i, d.Text,
			m.Filename, m.SourcePath, m.DocumentType, m.ChunkIndex, m.SourceLength); err != nil {
			return nil, fmt.Errorf("failed to insert document %s: %w", d.ID, err)
		}
		vec, _ := idx.Vector(d.ID)
		if _, err := vecStmt.ExecContext(ctx, d.ID, encodeFloat32Slice(vec)); err != nil {
			return nil, fmt.Errorf("failed to insert embedding %s: %w", d.ID, err)
		}
	}

	structure, err := json.Marshal(idx.Structure())
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO index_structure (id, data) VALUES (1, ?)", string(structure)); err != nil {
		return nil, fmt.Errorf("failed to save index structure: %w", err)
	}

	manifest := index.NewManifest(idx, info, s.now())
	sources, err := json.Marshal(manifest.Sources)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO manifest (id, built_at, document_count, dimension, sources) VALUES (1, ?, ?, ?, ?)`,
		manifest.BuiltAt.UTC().Format(time.RFC3339Nano), manifest.DocumentCount, manifest.Dimension, string(sources),
	); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return manifest, nil
}

// Manifest returns the committed manifest, or nil when none exists
func (s *Store) Manifest(ctx context.Context) (*index.Manifest, error) {
	var (
		builtAt string
		sources string
		m       index.Manifest
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT built_at, document_count, dimension, sources FROM manifest WHERE id = 1",
	).Scan(&builtAt, &m.DocumentCount, &m.Dimension, &sources)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, index.Corrupt("failed to read manifest: %v", err)
	}

	if m.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return nil, index.Corrupt("bad manifest timestamp %q", builtAt)
	}
	if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
		return nil, index.Corrupt("bad manifest sources: %v", err)
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
		return nil, index.Corrupt("no manifest in %s", s.path)
	}

	var data string
	if err := s.db.QueryRowContext(ctx, "SELECT data FROM index_structure WHERE id = 1").Scan(&data); err != nil {
		return nil, index.Corrupt("failed to read index structure: %v", err)
	}
	var structure index.Structure
	if err := json.Unmarshal([]byte(data), &structure); err != nil {
		return nil, index.Corrupt("failed to parse index structure: %v", err)
	}

	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := s.loadVectors(ctx)
	if err != nil {
		return nil, err
	}

	return index.Restore(structure, docs, vectors)
}

func (s *Store) loadDocuments(ctx context.Context) ([]index.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, filename, source_path, document_type, chunk_index, source_length
		 FROM documents ORDER BY position`)
	if err != nil {
		return nil, index.Corrupt("failed to read documents: %v", err)
	}
	defer rows.Close()

	var docs []index.Document
	for rows.Next() {
		var d index.Document
		m := &d.Metadata
		if err := rows.Scan(&d.ID, &d.Text, &m.Filename, &m.SourcePath,
			&m.DocumentType, &m.ChunkIndex, &m.SourceLength); err != nil {
			return nil, index.Corrupt("failed to scan document: %v", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, index.Corrupt("failed to read documents: %v", err)
	}
	return docs, nil
}

func (s *Store) loadVectors(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document_id, vector FROM embeddings")
	if err != nil {
		return nil, index.Corrupt("failed to read embeddings: %v", err)
	}
	defer rows.Close()

	vectors := make(map[string][]float32)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, index.Corrupt("failed to scan embedding: %v", err)
		}
		if len(blob)%4 != 0 {
			return nil, index.Corrupt("embedding for %s has %d bytes", id, len(blob))
		}
		vectors[id] = decodeFloat32Slice(blob)
	}
	if err := rows.Err(); err != nil {
		return nil, index.Corrupt("failed to read embeddings: %v", err)
	}
	return vectors, nil
}

func encodeFloat32Slice(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32Slice(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

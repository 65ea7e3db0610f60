// Package pgstore persists index snapshots in PostgreSQL with pgvector.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS lexis_documents (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	filename TEXT NOT NULL,
	source_path TEXT NOT NULL,
	document_type TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	source_length INTEGER NOT NULL,
	embedding vector NOT NULL
);
CREATE TABLE IF NOT EXISTS lexis_index_structure (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS lexis_manifest (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	built_at TIMESTAMPTZ NOT NULL,
	document_count INTEGER NOT NULL,
	dimension INTEGER NOT NULL,
	sources TEXT[] NOT NULL
);
`

// connect creates a pooled connection and makes sure the schema exists
func connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return pool, nil
}

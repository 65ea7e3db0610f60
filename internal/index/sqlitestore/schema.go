package sqlitestore

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	filename TEXT NOT NULL,
	source_path TEXT NOT NULL,
	document_type TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	source_length INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS embeddings (
	document_id TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	vector BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS index_structure (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS manifest (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	built_at TEXT NOT NULL,
	document_count INTEGER NOT NULL,
	dimension INTEGER NOT NULL,
	sources TEXT NOT NULL
);
`

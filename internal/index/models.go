package index

import (
	"time"
)

// DocumentTypeLegal tags records produced from the legal corpus
const DocumentTypeLegal = "legal_document"

// Metadata describes where a document record came from
type Metadata struct {
	Filename     string `json:"filename"`
	SourcePath   string `json:"source_path"`
	DocumentType string `json:"document_type"`
	ChunkIndex   int    `json:"chunk_index"`
	SourceLength int    `json:"source_length"`
}

// Document is a single retrievable record of the index
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// SearchResult is a document ranked against a query embedding
type SearchResult struct {
	Document Document
	Score    float32
}

// Manifest marks that an index snapshot exists and when it was built.
// Sources lists every corpus file the build saw, including files that
// produced no records, so that a later check can tell added files apart.
type Manifest struct {
	BuiltAt       time.Time `json:"built_at"`
	DocumentCount int       `json:"document_count"`
	Dimension     int       `json:"dimension"`
	Sources       []string  `json:"sources,omitempty"`
}

// BuildInfo describes the corpus an index was built from
type BuildInfo struct {
	// StartedAt is when the corpus was first read. Zero means the store's
	// clock at commit time.
	StartedAt time.Time
	// Files lists the corpus files the build saw. Empty means the sources
	// of the index records.
	Files []string
}

// NewManifest stamps a manifest for idx. now is used when info has no start time.
func NewManifest(idx *Index, info BuildInfo, now time.Time) *Manifest {
	builtAt := info.StartedAt
	if builtAt.IsZero() {
		builtAt = now
	}
	sources := info.Files
	if len(sources) == 0 {
		sources = idx.Sources()
	} else {
		sources = append([]string(nil), sources...)
	}
	return &Manifest{
		BuiltAt:       builtAt,
		DocumentCount: idx.Len(),
		Dimension:     idx.Dimension(),
		Sources:       sources,
	}
}

// Structure is the persisted form of the similarity-search structure.
// IDs fixes record order, which keeps search tie-breaking stable across reloads.
type Structure struct {
	Version   int      `json:"version"`
	Metric    string   `json:"metric"`
	Dimension int      `json:"dimension"`
	IDs       []string `json:"ids"`
}

const (
	structureVersion = 1
	metricCosine     = "cosine"
)

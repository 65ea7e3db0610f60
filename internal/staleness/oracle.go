// Package staleness decides whether a cached index still reflects its corpus.
package staleness

import (
	"errors"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lexis-ai/cli/internal/documents"
	"github.com/lexis-ai/cli/internal/index"
)

// Reason describes why a path invalidates the cache
type Reason string

const (
	ReasonNoManifest Reason = "no manifest"
	ReasonMissingDir Reason = "documents directory missing"
	ReasonModified   Reason = "modified"
	ReasonAdded      Reason = "added"
	ReasonRemoved    Reason = "removed"
)

// Change is one observation that makes the cache stale
type Change struct {
	Path   string
	Reason Reason
}

// Oracle compares the corpus files and their modification times against a
// manifest. Any change invalidates the whole cache.
type Oracle struct {
	logger *log.Logger
}

// New creates an oracle
func New(logger *log.Logger) *Oracle {
	return &Oracle{logger: logger}
}

// IsStale reports whether the index described by manifest must be rebuilt
func (o *Oracle) IsStale(sourceDir string, manifest *index.Manifest) bool {
	changes := o.Changed(sourceDir, manifest)
	for _, c := range changes {
		o.logger.Debug("cache invalidated", "path", c.Path, "reason", c.Reason)
	}
	return len(changes) > 0
}

// Changed lists every observation that invalidates manifest. An empty
// result means the cache is fresh. The corpus is the set of files
// documents.CorpusFiles lists, so hidden files never invalidate the cache.
func (o *Oracle) Changed(sourceDir string, manifest *index.Manifest) []Change {
	if manifest == nil {
		return []Change{{Path: sourceDir, Reason: ReasonNoManifest}}
	}

	files, err := documents.CorpusFiles(sourceDir)
	if err != nil {
		if !errors.Is(err, documents.ErrCorpusDirectoryMissing) {
			o.logger.Warn("failed to list documents directory", "dir", sourceDir, "err", err)
		}
		return []Change{{Path: sourceDir, Reason: ReasonMissingDir}}
	}

	known := make(map[string]bool, len(manifest.Sources))
	for _, source := range manifest.Sources {
		known[source] = true
	}

	var changes []Change
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		switch {
		case info.ModTime().After(manifest.BuiltAt):
			changes = append(changes, Change{Path: path, Reason: ReasonModified})
		case !known[path]:
			changes = append(changes, Change{Path: path, Reason: ReasonAdded})
		}
	}

	for _, source := range manifest.Sources {
		if _, err := os.Stat(source); errors.Is(err, fs.ErrNotExist) {
			changes = append(changes, Change{Path: source, Reason: ReasonRemoved})
		}
	}

	return changes
}

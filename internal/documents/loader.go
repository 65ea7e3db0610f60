package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lexis-ai/cli/internal/index"
)

// recordNamespace seeds the name-based record ids
var recordNamespace = uuid.MustParse("6f1c2a7e-3b0d-4c55-9a8e-2d4f1b7c9e31")

// Loader turns every supported file of a directory into index records
type Loader struct {
	parsers      map[string]Parser
	chunkSize    int
	chunkOverlap int
	logger       *log.Logger
}

// NewLoader creates a loader with the built-in parsers registered.
// chunkSize is in characters, chunkOverlap a percentage of words carried
// into the next chunk. A chunkSize of 0 keeps one record per file.
func NewLoader(chunkSize, chunkOverlap int, logger *log.Logger) *Loader {
	l := &Loader{
		parsers:      make(map[string]Parser),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}

	l.Register(".pdf", NewPDFParser())
	l.Register(".epub", NewEPUBParser())
	l.Register(".docx", NewDOCXParser())
	text := NewTextParser()
	l.Register(".txt", text)
	l.Register(".md", text)

	return l
}

// Register sets the parser used for files with extension ext
func (l *Loader) Register(ext string, p Parser) {
	l.parsers[strings.ToLower(ext)] = p
}

// Extensions lists the registered file extensions, sorted
func (l *Loader) Extensions() []string {
	exts := make([]string, 0, len(l.parsers))
	for ext := range l.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered parser
func (l *Loader) Supports(path string) bool {
	_, ok := l.parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// CorpusFiles lists the regular, non-hidden files directly inside dir, in
// directory order. These are the files LoadAll reads and the set a cache
// manifest is compared against.
func CorpusFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusDirectoryMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat documents directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// LoadAll extracts every file CorpusFiles lists.
// Files that cannot be parsed are logged and skipped.
func (l *Loader) LoadAll(ctx context.Context, dir string) ([]index.Document, error) {
	files, err := CorpusFiles(dir)
	if err != nil {
		return nil, err
	}

	var docs []index.Document
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := filepath.Base(path)
		records, err := l.LoadFile(path)
		if errors.Is(err, ErrUnsupportedFormat) {
			l.logger.Warn("skipping unsupported file", "file", name)
			continue
		}
		if err != nil {
			l.logger.Warn("skipping unreadable file", "file", name, "err", err)
			continue
		}
		if len(records) == 0 {
			l.logger.Debug("skipping file without text", "file", name)
			continue
		}

		l.logger.Debug("loaded document", "file", name, "records", len(records))
		docs = append(docs, records...)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCorpusEmpty, dir)
	}
	return docs, nil
}

// LoadFile extracts and chunks a single file. Whitespace-only text yields no records.
func (l *Loader) LoadFile(path string) ([]index.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser, ok := l.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	parsed, err := parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, nil
	}

	name := filepath.Base(path)
	sourceLength := utf8.RuneCountInString(parsed.Text)

	var chunks []string
	if l.chunkSize > 0 {
		chunks = l.splitText(parsed.Text)
	} else {
		chunks = []string{parsed.Text}
	}

	docs := make([]index.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = index.Document{
			ID:   RecordID(name, i),
			Text: chunk,
			Metadata: index.Metadata{
				Filename:     name,
				SourcePath:   path,
				DocumentType: index.DocumentTypeLegal,
				ChunkIndex:   i,
				SourceLength: sourceLength,
			},
		}
	}
	return docs, nil
}

// RecordID derives the stable id of chunk i of the named file
func RecordID(name string, chunk int) string {
	return uuid.NewSHA1(recordNamespace, []byte(name+"#"+strconv.Itoa(chunk))).String()
}

// splitText splits text into chunks with overlap
func (l *Loader) splitText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	currentChunk := []string{}
	currentSize := 0

	for _, word := range words {
		wordSize := len(word) + 1 // +1 for space
		if currentSize+wordSize > l.chunkSize && len(currentChunk) > 0 {
			chunks = append(chunks, strings.Join(currentChunk, " "))

			// Keep overlap words for next chunk
			overlapWords := len(currentChunk) * l.chunkOverlap / 100
			if overlapWords > 0 && overlapWords < len(currentChunk) {
				currentChunk = append([]string(nil), currentChunk[len(currentChunk)-overlapWords:]...)
				currentSize = len(strings.Join(currentChunk, " ")) + 1
			} else {
				currentChunk = []string{}
				currentSize = 0
			}
		}
		currentChunk = append(currentChunk, word)
		currentSize += wordSize
	}

	if len(currentChunk) > 0 {
		chunks = append(chunks, strings.Join(currentChunk, " "))
	}

	return chunks
}

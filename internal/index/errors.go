package index

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotReady is returned when searching an index that was never built or loaded
	ErrIndexNotReady = errors.New("index not ready: build or load it first")
	// ErrCacheCorrupt is returned when persisted index state is missing or unreadable
	ErrCacheCorrupt = errors.New("index cache corrupt")
	// ErrEmptyIndex is returned when building an index without documents
	ErrEmptyIndex = errors.New("index has no documents")
	// ErrDimensionMismatch is returned when vectors of different sizes meet
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidK is returned for a non-positive result count
	ErrInvalidK = errors.New("k must be a positive integer")
	// ErrDuplicateID is returned when two records share an id
	ErrDuplicateID = errors.New("duplicate document id")
)

// Corrupt wraps ErrCacheCorrupt with detail about what was wrong
func Corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCacheCorrupt, fmt.Sprintf(format, args...))
}

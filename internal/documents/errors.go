package documents

import "errors"

var (
	// ErrCorpusDirectoryMissing is returned when the documents directory does not exist
	ErrCorpusDirectoryMissing = errors.New("documents directory does not exist")
	// ErrCorpusEmpty is returned when no file in the directory yields text
	ErrCorpusEmpty = errors.New("no documents could be loaded")
	// ErrUnsupportedFormat is returned for files without a registered parser
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

package rag

import "fmt"

// ErrorKind classifies a failed query
type ErrorKind string

const (
	KindIndexNotReady ErrorKind = "index_not_ready"
	KindRetrieval     ErrorKind = "retrieval"
	KindProvider      ErrorKind = "provider"
)

// QueryError is returned by Router.Answer instead of an error string in the answer text
type QueryError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %s", e.Kind, e.Detail)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Render produces the text shown to a chat user in place of an answer
func (e *QueryError) Render() string {
	return "Error processing query: " + e.Detail
}

func newQueryError(kind ErrorKind, err error) *QueryError {
	return &QueryError{Kind: kind, Detail: err.Error(), Err: err}
}

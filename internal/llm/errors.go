// Package llm talks to OpenAI-compatible embedding and chat endpoints
// (Mistral by default) and defines the error shared by every provider.
package llm

import (
	"errors"
	"fmt"
)

// ErrProvider matches every *ProviderError with errors.Is
var ErrProvider = errors.New("provider error")

// ProviderError reports a failed call to an embedding or completion service
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrProvider) true for any ProviderError
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewProviderError wraps err unless it is nil
func NewProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Package testutil holds deterministic provider fakes shared by package tests.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// HashEmbedder is a bag-of-words embedder: every lowercased word is hashed
// into one of Dim buckets. Texts sharing words get similar vectors.
type HashEmbedder struct {
	Dim   int
	Err   error
	calls atomic.Int64
}

// NewHashEmbedder creates an embedder with dim buckets
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

// Embed implements index.Embedder
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	vec := make([]float32, e.Dim)
	for _, word := range Words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%e.Dim]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if n := float32(math.Sqrt(sum)); n > 0 {
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

// Calls returns how many times Embed was called
func (e *HashEmbedder) Calls() int {
	return int(e.calls.Load())
}

// Words splits text into lowercase alphanumeric words
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// RecordingCompleter returns a fixed reply and remembers every prompt
type RecordingCompleter struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
}

// Complete implements rag.Completer
func (c *RecordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	return c.Reply, nil
}

// Prompts returns the prompts received so far
func (c *RecordingCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Package chat keeps the transcript of a conversation with the bot.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lexis-ai/cli/internal/rag"
)

// ErrEmptyQuestion is returned for blank input
var ErrEmptyQuestion = errors.New("question is empty")

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the transcript
type Turn struct {
	Role    Role
	Content string
}

// Querier answers a single question
type Querier interface {
	Query(ctx context.Context, question string) (*rag.Answer, error)
}

// Session is an append-only transcript. Query failures become assistant
// turns carrying the rendered error, so every question gets a reply.
type Session struct {
	bot Querier

	mu    sync.Mutex
	turns []Turn
}

// NewSession creates an empty session over bot
func NewSession(bot Querier) *Session {
	return &Session{bot: bot}
}

// Ask records question and the reply. The answer is nil when the query
// failed with a *rag.QueryError. Any other error is returned and nothing is recorded.
func (s *Session) Ask(ctx context.Context, question string) (string, *rag.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, ErrEmptyQuestion
	}

	answer, err := s.bot.Query(ctx, question)
	var reply string
	switch {
	case err == nil:
		reply = answer.Text
	default:
		var qerr *rag.QueryError
		if !errors.As(err, &qerr) {
			return "", nil, err
		}
		reply = qerr.Render()
		answer = nil
	}

	s.mu.Lock()
	s.turns = append(s.turns,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: reply},
	)
	s.mu.Unlock()

	return reply, answer, nil
}

// Turns returns a copy of the transcript
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Len returns the number of turns
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

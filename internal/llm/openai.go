package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lexis-ai/cli/internal/util"
)

const (
	// MistralBaseURL is the OpenAI-compatible Mistral endpoint
	MistralBaseURL = "https://api.mistral.ai/v1"
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "open-mistral-7b"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = "mistral-embed"
)

// ClientConfig holds configuration for an OpenAI-compatible client
type ClientConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// DefaultMistralConfig returns the configuration used when nothing else is set
func DefaultMistralConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		Provider:       "mistral",
		APIKey:         apiKey,
		BaseURL:        MistralBaseURL,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Temperature:    0.1,
		MaxTokens:      1024,
		MaxRetries:     3,
		RetryDelay:     time.Second * 2,
		Timeout:        60 * time.Second,
	}
}

// OpenAIClient wraps the go-openai client with retry logic
type OpenAIClient struct {
	client   *openai.Client
	cfg      ClientConfig
	provider string
}

// NewOpenAIClient creates a client from config
func NewOpenAIClient(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", config.Provider)
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}
	if config.HTTPClient != nil {
		oc.HTTPClient = config.HTTPClient
	}

	provider := config.Provider
	if provider == "" {
		provider = "openai"
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(oc),
		cfg:      *config,
		provider: provider,
	}, nil
}

// Embed returns the embedding of text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	err := c.withRetry(ctx, "embed", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errors.New("no embeddings returned")
		}
		embedding = resp.Data[0].Embedding
		return nil
	})
	return embedding, err
}

// Complete sends prompt as a single user message and returns the reply
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	var reply string
	err := c.withRetry(ctx, "complete", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.cfg.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no completion choices returned")
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	return reply, err
}

// withRetry runs call until it succeeds, fails permanently or runs out of attempts
func (c *OpenAIClient) withRetry(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(c.cfg.RetryDelay, attempt)); err != nil {
				return NewProviderError(c.provider, op, err)
			}
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		}
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return NewProviderError(c.provider, op, lastErr)
}

// retryable reports whether another attempt could succeed
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

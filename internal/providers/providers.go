// Package providers builds the embedding and completion backends named in the config.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lexis-ai/cli/config"
	"github.com/lexis-ai/cli/internal/embeddings"
	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/llm"
	"github.com/lexis-ai/cli/internal/ollama"
	"github.com/lexis-ai/cli/internal/rag"
)

const (
	openAIChatModel      = "gpt-4o-mini"
	openAIEmbeddingModel = "text-embedding-3-small"
)

// Set is the pair of backends a bot needs
type Set struct {
	Name      string
	ChatModel string
	Embedder  index.Embedder
	Completer rag.Completer
}

// New builds the providers selected by cfg.Provider. For Ollama the chat
// model is resolved against the server, so ctx bounds that lookup.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Set, error) {
	switch cfg.Provider {
	case config.ProviderMistral, config.ProviderOpenAI:
		return newOpenAICompatible(cfg)
	case config.ProviderOllama:
		return newOllama(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newOpenAICompatible(cfg *config.Config) (*Set, error) {
	cc := llm.DefaultMistralConfig(cfg.OpenAI.APIKey)
	cc.Provider = cfg.Provider
	cc.BaseURL = cfg.OpenAI.BaseURL
	cc.ChatModel = cfg.OpenAI.ChatModel
	cc.EmbeddingModel = cfg.OpenAI.EmbeddingModel
	cc.Temperature = cfg.OpenAI.Temperature
	if cfg.OpenAI.MaxTokens > 0 {
		cc.MaxTokens = cfg.OpenAI.MaxTokens
	}
	if cfg.OpenAI.MaxRetries > 0 {
		cc.MaxRetries = cfg.OpenAI.MaxRetries
	}

	// the defaults point at Mistral; an openai provider left on them means api.openai.com
	if cfg.Provider == config.ProviderOpenAI {
		if cc.BaseURL == llm.MistralBaseURL {
			cc.BaseURL = ""
		}
		if cc.ChatModel == llm.DefaultChatModel {
			cc.ChatModel = openAIChatModel
		}
		if cc.EmbeddingModel == llm.DefaultEmbeddingModel {
			cc.EmbeddingModel = openAIEmbeddingModel
		}
	}

	client, err := llm.NewOpenAIClient(cc)
	if err != nil {
		return nil, err
	}
	return &Set{
		Name:      cfg.Provider,
		ChatModel: cc.ChatModel,
		Embedder:  client,
		Completer: client,
	}, nil
}

func newOllama(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Set, error) {
	client := ollama.NewClient(cfg.Ollama.BaseURL)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := ollama.NewModelSelector(client).GetDefaultModel(ctx, cfg.Ollama.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("failed to select ollama model: %w", err)
	}
	if cfg.Ollama.DefaultModel != "" && strings.TrimSuffix(model, ":latest") != strings.TrimSuffix(cfg.Ollama.DefaultModel, ":latest") {
		logger.Warn("configured ollama model not found, using another", "configured", cfg.Ollama.DefaultModel, "model", model)
	}

	return &Set{
		Name:      config.ProviderOllama,
		ChatModel: model,
		Embedder:  embeddings.NewTextEmbedder(client.BaseURL(), cfg.Embeddings.TextModel),
		Completer: ollama.NewCompleter(client, model, cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens),
	}, nil
}

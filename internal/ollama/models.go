package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNoModels is returned when the server has no models pulled
var ErrNoModels = errors.New("no models available")

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// preferredModels are tried in order when no model is configured
var preferredModels = []string{
	"mistral",
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"llama3",
}

// ModelSelector handles model selection logic
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all available Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ms.client.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// SelectBestModel picks a generation model, skipping embedding-only models
func (ms *ModelSelector) SelectBestModel(ctx context.Context) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	var candidates []ModelInfo
	for _, m := range models {
		if !strings.Contains(strings.ToLower(m.Name), "embed") {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoModels
	}

	for _, preferred := range preferredModels {
		for _, model := range candidates {
			if strings.Contains(strings.ToLower(model.Name), preferred) {
				return model.Name, nil
			}
		}
	}

	// Otherwise the largest model
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Size > candidates[j].Size
	})

	return candidates[0].Name, nil
}

// GetDefaultModel returns defaultModel when the server has it, otherwise the best available one
func (ms *ModelSelector) GetDefaultModel(ctx context.Context, defaultModel string) (string, error) {
	if defaultModel != "" {
		models, err := ms.ListModels(ctx)
		if err != nil {
			return "", err
		}

		for _, model := range models {
			if model.Name == defaultModel || strings.TrimSuffix(model.Name, ":latest") == defaultModel {
				return model.Name, nil
			}
		}
	}

	return ms.SelectBestModel(ctx)
}

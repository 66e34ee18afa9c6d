// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/khub-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/khub-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/khub-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/khub-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/khub-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Provider names accepted in settings.
const (
	ProviderAuto   = "auto"
	ProviderOllama = "ollama"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [embedding] section of your config",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the [embedding] section of your config",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			BatchSize:  settings.BatchSize,
		})

	case ProviderClaude:
		return nil, fmt.Errorf("claude does not serve embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate answer-generation service
// based on settings. Provider "auto" yields a fallback chain that
// picks the first reachable provider per call, in the order ollama,
// claude, openai. Returns nil if no provider is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOllama:
		return createOllamaLLM(settings), nil

	case ProviderClaude:
		return createClaudeLLM(settings)

	case ProviderOpenAI:
		return createOpenAILLM(settings)

	case ProviderAuto:
		return createAutoLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createAutoLLM assembles the fallback chain from every provider the
// settings can authenticate. Ollama needs no credentials, so it is
// always a candidate.
func createAutoLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	candidates := []driven.LLMService{createOllamaLLM(settings)}

	if settings.ClaudeAPIKey != "" {
		svc, err := createClaudeLLM(settings)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, svc)
	}
	if settings.OpenAIAPIKey != "" {
		svc, err := createOpenAILLM(settings)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, svc)
	}

	return NewChain(candidates...), nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createClaudeLLM creates an Anthropic LLM service.
func createClaudeLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	// The model setting names the ollama model; hosted providers keep
	// their own defaults.
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey: settings.ClaudeAPIKey,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey: settings.OpenAIAPIKey,
	})
}

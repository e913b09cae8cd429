// Package embeddings converts text into fixed-dimension vectors via an
// external model provider.
package embeddings

import (
	"context"
	"fmt"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/retry"
)

// Provider represents an embedding provider type.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Service defines the interface for embedding services. Implementations
// retry transient provider failures with the policy they were built with.
type Service interface {
	// EmbedBatch generates one embedding per input text, order-preserving,
	// with len(out) == len(in). Empty input or an empty text fails with
	// ErrInvalidArgument.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a query (may use a different
	// task prefix than document text).
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensions for this model.
	Dimensions() int

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// Known model dimensions
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates an embedding service based on the configuration.
func NewService(cfg *config.Config, policy retry.Policy) (Service, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return NewOllamaService(
			cfg.Embeddings.Ollama.URL,
			cfg.Embeddings.Ollama.Model,
			cfg.Providers.Timeout,
			policy,
		)
	case "openai":
		return NewOpenAIService(
			cfg.Embeddings.OpenAI.APIKey,
			cfg.Embeddings.OpenAI.Model,
			cfg.Embeddings.OpenAI.BaseURL,
			cfg.Embeddings.OpenAI.Dimensions,
			policy,
		)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}
}

// checkTexts validates embedding input.
func checkTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts to embed", domain.ErrInvalidArgument)
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: empty text at index %d", domain.ErrInvalidArgument, i)
		}
	}
	return nil
}

// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"fmt"

	ollamaembed "github.com/custodia-labs/hierag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/hierag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/hierag/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// CreateEmbeddingService creates the embedding service selected by settings,
// wrapped in a rate-limiting decorator.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, log *logger.Logger) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return ratelimit.New(svc, ratelimit.Config{
		RequestsPerSecond: settings.RequestsPerSecond,
		Burst:             settings.Burst,
		MaxBatch:          settings.BatchSize,
	}, log), nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI-compatible embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: settings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

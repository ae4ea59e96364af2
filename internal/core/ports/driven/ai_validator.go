package driven

import "github.com/custodia-labs/hierag/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if the configuration is valid.
	ValidateEmbedding(config *domain.EmbeddingSettings) error
}

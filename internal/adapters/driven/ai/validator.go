package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeTimeout bounds the connectivity and dimension probe.
const probeTimeout = 10 * time.Second

// ConfigValidator checks embedding settings against the live provider.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a new embedding config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: probeTimeout}
}

// ValidateEmbedding builds the configured service, pings it and embeds a
// probe text to confirm the configured dimensions.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config, logger.Nop())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	// Adapters reject vectors whose length differs from Dimensions.
	if _, err := svc.Embed(ctx, "第1條"); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return err
		}
		return fmt.Errorf("%w: probe embedding: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

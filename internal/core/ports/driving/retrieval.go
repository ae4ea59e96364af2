package driving

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// RetrieveOptions controls a retrieval query.
type RetrieveOptions struct {
	// K is the number of results; 0 uses the configured default.
	K int

	// DocumentID restricts the search to one document when set.
	DocumentID domain.DocumentID

	// Strategy names the retrieval strategy; empty uses the default.
	Strategy string

	// ContentMaxLength truncates passage content; 0 uses the configured default.
	ContentMaxLength int
}

// RetrievalService answers similarity queries with hierarchical context.
type RetrievalService interface {
	// Retrieve returns rendered passages ready for a language model.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.Passage, error)

	// RetrieveResults returns the structured results behind Retrieve.
	RetrieveResults(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RetrievalResult, error)

	// Strategies lists the registered strategy names.
	Strategies() []string
}

package driving

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// DocumentService manages indexed documents.
type DocumentService interface {
	// List returns all indexed documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error)

	// Chunks returns the chunk tree of a document in pre-order.
	Chunks(ctx context.Context, id domain.DocumentID) ([]domain.Chunk, error)

	// Stats returns chunk, closure and embedding counts for a document.
	Stats(ctx context.Context, id domain.DocumentID) (*domain.DocumentStats, error)

	// Delete removes a document and everything derived from it.
	Delete(ctx context.Context, id domain.DocumentID) error

	// RebuildClosure recomputes the closure table of a document and
	// returns the number of rows written.
	RebuildClosure(ctx context.Context, id domain.DocumentID) (int, error)
}

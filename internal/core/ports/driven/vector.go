package driven

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// VectorIndex stores chunk embeddings in two indexes, selected by
// domain.IndexingLevelSummary and domain.IndexingLevelDetail, and answers
// cosine similarity queries against either.
type VectorIndex interface {
	// SaveEmbedding stores or replaces the vector of a chunk in one index.
	// Returns domain.ErrInvalidLevel when index is not summary or detail,
	// or when the chunk's level does not admit that index, and
	// domain.ErrNotFound when the chunk does not exist.
	SaveEmbedding(ctx context.Context, chunkID domain.ChunkID, vector []float32, index domain.IndexingLevel) error

	// GetEmbedding returns the stored vector of a chunk in one index.
	// Returns domain.ErrNotFound if absent.
	GetEmbedding(ctx context.Context, chunkID domain.ChunkID, index domain.IndexingLevel) ([]float32, error)

	// SimilaritySearch returns up to k hits ordered by descending similarity.
	// A non-empty documentID restricts the search to that document.
	SimilaritySearch(ctx context.Context, query []float32, index domain.IndexingLevel, k int,
		documentID domain.DocumentID) ([]VectorHit, error)

	// Count returns the number of vectors of a document in one index.
	Count(ctx context.Context, documentID domain.DocumentID, index domain.IndexingLevel) (int, error)

	// DeleteDocument removes every vector of a document from both indexes.
	DeleteDocument(ctx context.Context, documentID domain.DocumentID) error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID domain.ChunkID

	// Similarity is 1 minus the cosine distance; higher is closer.
	Similarity float64
}

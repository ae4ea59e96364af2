package driven

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// HierarchyStore persists documents, their chunk trees and the closure
// table of ancestor/descendant pairs.
type HierarchyStore interface {
	// SaveDocument inserts or updates document metadata.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunksBatch inserts chunks in one transaction. A chunk whose ID
	// already exists has its content, path, label and depth refreshed.
	// Chunks must be ordered parents first.
	SaveChunksBatch(ctx context.Context, chunks []domain.Chunk) error

	// BuildClosureTable replaces the closure rows of a document with pairs
	// recomputed from the stored hierarchy paths. Safe to call repeatedly.
	BuildClosureTable(ctx context.Context, documentID domain.DocumentID) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id domain.DocumentID) (*domain.Document, error)

	// GetDocumentBySource retrieves the document indexed from a source filename.
	// Returns domain.ErrNotFound if absent.
	GetDocumentBySource(ctx context.Context, sourceFile string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document with its chunks, closure rows and
	// embeddings. Deleting an absent document is not an error.
	DeleteDocument(ctx context.Context, id domain.DocumentID) error

	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound if absent.
	GetChunk(ctx context.Context, id domain.ChunkID) (*domain.Chunk, error)

	// GetChunks returns every chunk of a document in pre-order.
	GetChunks(ctx context.Context, documentID domain.DocumentID) ([]domain.Chunk, error)

	// GetChildren returns the direct children of a chunk in document order.
	GetChildren(ctx context.Context, id domain.ChunkID) ([]domain.Chunk, error)

	// GetAncestors returns the ancestors of a chunk, nearest first.
	// maxDepth bounds how many levels up to go; 0 or less means unbounded.
	GetAncestors(ctx context.Context, id domain.ChunkID, maxDepth int) ([]domain.Chunk, error)

	// GetClosure returns the closure rows of a document.
	GetClosure(ctx context.Context, documentID domain.DocumentID) ([]domain.ClosureEntry, error)

	// DocumentStats counts what is stored for a document. Embedding counts
	// are filled in by the VectorIndex.
	// Returns domain.ErrNotFound if the document is absent.
	DocumentStats(ctx context.Context, id domain.DocumentID) (*domain.DocumentStats, error)
}

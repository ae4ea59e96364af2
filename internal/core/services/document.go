package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages indexed documents.
type DocumentService struct {
	store   driven.HierarchyStore
	vectors driven.VectorIndex
	locker  driven.DocumentLocker
	log     *logger.Logger
}

// NewDocumentService creates a new document service.
// The locker should be the one shared with the IndexService so that a
// delete or closure rebuild never interleaves with indexing.
func NewDocumentService(
	store driven.HierarchyStore,
	vectors driven.VectorIndex,
	locker driven.DocumentLocker,
	log *logger.Logger,
) *DocumentService {
	if locker == nil {
		locker = NewDocumentLocks()
	}
	return &DocumentService{
		store:   store,
		vectors: vectors,
		locker:  locker,
		log:     log.Named("documents"),
	}
}

// List returns all indexed documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Chunks returns the chunk tree of a document in pre-order.
func (s *DocumentService) Chunks(ctx context.Context, id domain.DocumentID) ([]domain.Chunk, error) {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, id)
}

// Stats returns chunk, closure and embedding counts for a document.
func (s *DocumentService) Stats(ctx context.Context, id domain.DocumentID) (*domain.DocumentStats, error) {
	stats, err := s.store.DocumentStats(ctx, id)
	if err != nil {
		return nil, err
	}
	if stats.SummaryEmbeddings, err = s.vectors.Count(ctx, id, domain.IndexingLevelSummary); err != nil {
		return nil, fmt.Errorf("counting summary embeddings: %w", err)
	}
	if stats.DetailEmbeddings, err = s.vectors.Count(ctx, id, domain.IndexingLevelDetail); err != nil {
		return nil, fmt.Errorf("counting detail embeddings: %w", err)
	}
	return stats, nil
}

// Delete removes a document with its chunks, closure rows and embeddings.
func (s *DocumentService) Delete(ctx context.Context, id domain.DocumentID) error {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.vectors.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	s.log.Info("deleted document", "document", id)
	return nil
}

// RebuildClosure recomputes the closure table of a document.
func (s *DocumentService) RebuildClosure(ctx context.Context, id domain.DocumentID) (int, error) {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return 0, err
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := s.store.BuildClosureTable(ctx, id); err != nil {
		return 0, fmt.Errorf("building closure: %w", err)
	}
	rows, err := s.store.GetClosure(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("reading closure: %w", err)
	}
	s.log.Info("rebuilt closure", "document", id, "rows", len(rows))
	return len(rows), nil
}

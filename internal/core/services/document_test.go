package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/logger"
)

func newTestDocuments(store *memory.Store) *DocumentService {
	return NewDocumentService(store.HierarchyStore(), store.VectorIndex(), nil, logger.Nop())
}

func TestDocumentService_ListAndGet(t *testing.T) {
	store := memory.NewStore()
	seedStatute(t, store)
	svc := newTestDocuments(store)
	ctx := context.Background()

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.DocumentID("law"), docs[0].ID)

	doc, err := svc.Get(ctx, "law")
	require.NoError(t, err)
	assert.Equal(t, "law.txt", doc.SourceFile)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Chunks(t *testing.T) {
	store := memory.NewStore()
	seedStatute(t, store)
	svc := newTestDocuments(store)

	chunks, err := svc.Chunks(context.Background(), "law")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChunkID{"R", "C1", "A1", "A2", "P1", "C2"}, chunkIDs(chunks))

	_, err = svc.Chunks(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Stats(t *testing.T) {
	store := memory.NewStore()
	seedStatute(t, store)
	svc := newTestDocuments(store)

	stats, err := svc.Stats(context.Background(), "law")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.MaxDepth)
	assert.Equal(t, 2, stats.ChunksByType[domain.ChunkTypeChapter])
	assert.Equal(t, 4, stats.SummaryEmbeddings)
	assert.Equal(t, 3, stats.DetailEmbeddings)
	// R, C1, C2 and A2 expect summaries; A1, A2 and P1 expect details.
	assert.True(t, stats.IsComplete())
	// A1 and A2 have two ancestors, P1 three, C1 and C2 one.
	assert.Equal(t, 9, stats.ClosureRows)
}

func TestDocumentService_Delete(t *testing.T) {
	store := memory.NewStore()
	seedStatute(t, store)
	svc := newTestDocuments(store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "law"))

	_, err := svc.Get(ctx, "law")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.HierarchyStore().GetChunk(ctx, "A1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	hits, err := store.VectorIndex().SimilaritySearch(ctx, []float32{1, 0, 0, 0}, domain.IndexingLevelDetail, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, svc.Delete(ctx, "law"), domain.ErrNotFound)
}

func TestDocumentService_RebuildClosure(t *testing.T) {
	store := memory.NewStore()
	seedStatute(t, store)
	svc := newTestDocuments(store)
	ctx := context.Background()

	first, err := svc.RebuildClosure(ctx, "law")
	require.NoError(t, err)
	second, err := svc.RebuildClosure(ctx, "law")
	require.NoError(t, err)
	assert.Equal(t, 9, first)
	assert.Equal(t, first, second)

	_, err = svc.RebuildClosure(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

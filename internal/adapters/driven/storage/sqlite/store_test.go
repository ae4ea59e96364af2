package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "hierag-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// seedTree stores a small statute: root > chapter > two articles.
func seedTree(t *testing.T, store *Store) []domain.Chunk {
	t.Helper()
	ctx := context.Background()
	h := store.HierarchyStore()

	require.NoError(t, h.SaveDocument(ctx, &domain.Document{
		ID: "labor", SourceFile: "labor.txt", Title: "勞動基準法", TotalChars: 42,
	}))

	root := domain.NewHierarchyPath()
	chapter := root.Append("第一章")
	chunks := []domain.Chunk{
		{ID: "r", DocumentID: "labor", Path: root, Depth: 0, Position: 0, SourceFile: "labor.txt",
			Type: domain.ChunkTypeDocument, Level: domain.IndexingLevelSummary, ChildIDs: []domain.ChunkID{"c"},
			Metadata: map[string]string{domain.MetaStrategy: "legal"}},
		{ID: "c", DocumentID: "labor", Path: chapter, Depth: 1, Position: 1, ParentID: "r",
			Type: domain.ChunkTypeChapter, Level: domain.IndexingLevelSummary, ChildIDs: []domain.ChunkID{"a1", "a2"},
			ChapterLabel: "第一章"},
		{ID: "a1", DocumentID: "labor", Path: chapter.Append("第1條"), Depth: 2, Position: 2, ParentID: "c",
			Type: domain.ChunkTypeArticle, Level: domain.IndexingLevelBoth, Content: "第1條 內容",
			ArticleLabel: "第1條", ChapterLabel: "第一章", PageNumber: 1, CharCount: 6},
		{ID: "a2", DocumentID: "labor", Path: chapter.Append("第2條"), Depth: 2, Position: 3, ParentID: "c",
			Type: domain.ChunkTypeArticle, Level: domain.IndexingLevelDetail, Content: "第2條 內容",
			ArticleLabel: "第2條", ChapterLabel: "第一章", PageNumber: 2, CharCount: 6},
	}
	require.NoError(t, h.SaveChunksBatch(ctx, chunks))
	require.NoError(t, h.BuildClosureTable(ctx, "labor"))
	return chunks
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, DatabaseFile, filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	seedTree(t, store)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var versions int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)

	doc, err := reopened.HierarchyStore().GetDocument(context.Background(), "labor")
	require.NoError(t, err)
	assert.Equal(t, "勞動基準法", doc.Title)
}

func TestHierarchyStore_SaveDocument_Success(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	h := store.HierarchyStore()
	ctx := context.Background()

	effective := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID: "labor", SourceFile: "labor.txt", Title: "勞動基準法", Category: "labour", Version: "2024",
		EffectiveDate: &effective, TotalChars: 1200, ChunkCount: 9,
		Metadata: map[string]string{"authority": "MOL"},
	}
	require.NoError(t, h.SaveDocument(ctx, doc))

	got, err := h.GetDocument(ctx, "labor")
	require.NoError(t, err)
	assert.Equal(t, "labour", got.Category)
	assert.Equal(t, 1200, got.TotalChars)
	assert.Equal(t, 9, got.ChunkCount)
	assert.Equal(t, "MOL", got.Metadata["authority"])
	require.NotNil(t, got.EffectiveDate)
	assert.True(t, effective.Equal(*got.EffectiveDate))

	bySource, err := h.GetDocumentBySource(ctx, "labor.txt")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentID("labor"), bySource.ID)
}

func TestHierarchyStore_SaveDocument_DuplicateSource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	h := store.HierarchyStore()
	ctx := context.Background()

	require.NoError(t, h.SaveDocument(ctx, &domain.Document{ID: "a", SourceFile: "same.txt"}))
	err := h.SaveDocument(ctx, &domain.Document{ID: "b", SourceFile: "same.txt"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHierarchyStore_GetDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.HierarchyStore().GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.HierarchyStore().GetChunk(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHierarchyStore_GetChunk_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	chunks := seedTree(t, store)

	got, err := store.HierarchyStore().GetChunk(context.Background(), "a2")
	require.NoError(t, err)
	want := chunks[3]
	assert.Equal(t, want.Content, got.Content)
	assert.True(t, want.Path.Equal(got.Path))
	assert.Equal(t, want.ParentID, got.ParentID)
	assert.Equal(t, want.Level, got.Level)
	assert.Equal(t, 2, got.PageNumber)
	assert.Equal(t, "第2條", got.ArticleLabel)
	assert.False(t, got.CreatedAt.IsZero())

	root, err := store.HierarchyStore().GetChunk(context.Background(), "r")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, []domain.ChunkID{"c"}, root.ChildIDs)
	assert.Equal(t, "legal", root.Metadata[domain.MetaStrategy])
}

func TestHierarchyStore_SaveChunksBatch_RollsBackOnOrphan(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	h := store.HierarchyStore()
	ctx := context.Background()
	require.NoError(t, h.SaveDocument(ctx, &domain.Document{ID: "labor", SourceFile: "labor.txt"}))

	err := h.SaveChunksBatch(ctx, []domain.Chunk{
		{ID: "r", DocumentID: "labor", Type: domain.ChunkTypeDocument, Level: domain.IndexingLevelSummary},
		{ID: "x", DocumentID: "labor", Depth: 1, ParentID: "nobody", Path: domain.NewHierarchyPath("x"),
			Type: domain.ChunkTypeArticle, Level: domain.IndexingLevelDetail},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := h.GetChunks(ctx, "labor")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestHierarchyStore_SaveChunksBatch_RejectsInvalid(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.HierarchyStore().SaveChunksBatch(context.Background(), []domain.Chunk{
		{ID: "r", DocumentID: "labor", Type: domain.ChunkTypeDocument, Level: "everything"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidLevel)
}

func TestHierarchyStore_SaveChunksBatch_RefreshesExisting(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	chunks := seedTree(t, store)
	h := store.HierarchyStore()
	ctx := context.Background()

	updated := chunks[2]
	updated.Content = "第1條 修正"
	require.NoError(t, h.SaveChunksBatch(ctx, []domain.Chunk{updated}))

	got, err := h.GetChunk(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "第1條 修正", got.Content)

	var label string
	require.NoError(t, store.db.QueryRow("SELECT path_label FROM chunks WHERE id = 'a1'").Scan(&label))
	wantLabel, _ := domain.EncodePathLabel(updated.Path, updated.Depth)
	assert.Equal(t, wantLabel, label)
}

func TestHierarchyStore_GetChildren_DocumentOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)

	children, err := store.HierarchyStore().GetChildren(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, domain.ChunkID("a1"), children[0].ID)
	assert.Equal(t, domain.ChunkID("a2"), children[1].ID)
}

func TestHierarchyStore_GetAncestors(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)
	h := store.HierarchyStore()
	ctx := context.Background()

	all, err := h.GetAncestors(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.ChunkID("c"), all[0].ID)
	assert.Equal(t, domain.ChunkID("r"), all[1].ID)

	bounded, err := h.GetAncestors(ctx, "a1", 1)
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, domain.ChunkID("c"), bounded[0].ID)
}

func TestHierarchyStore_BuildClosureTable_Idempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)
	h := store.HierarchyStore()
	ctx := context.Background()

	require.NoError(t, h.BuildClosureTable(ctx, "labor"))
	require.NoError(t, h.BuildClosureTable(ctx, "labor"))

	entries, err := h.GetClosure(ctx, "labor")
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Positive(t, e.Depth)
		assert.NotEqual(t, e.AncestorID, e.DescendantID)
	}
}

func TestHierarchyStore_DocumentStats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)

	stats, err := store.HierarchyStore().DocumentStats(context.Background(), "labor")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MaxDepth)
	assert.Equal(t, 5, stats.ClosureRows)
	assert.Equal(t, 2, stats.ChunksByType[domain.ChunkTypeArticle])
	assert.Equal(t, 1, stats.ChunksByLevel[domain.IndexingLevelBoth])
	assert.Equal(t, 3, stats.ExpectedSummaryEmbeddings())

	_, err = store.HierarchyStore().DocumentStats(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHierarchyStore_DeleteDocument_Cascades(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)
	h := store.HierarchyStore()
	v := store.VectorIndex()
	ctx := context.Background()
	require.NoError(t, v.SaveEmbedding(ctx, "a1", []float32{1, 0}, domain.IndexingLevelDetail))

	require.NoError(t, h.DeleteDocument(ctx, "labor"))
	require.NoError(t, h.DeleteDocument(ctx, "labor"))

	chunks, err := h.GetChunks(ctx, "labor")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	closure, err := h.GetClosure(ctx, "labor")
	require.NoError(t, err)
	assert.Empty(t, closure)
	n, err := v.Count(ctx, "labor", domain.IndexingLevelDetail)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVectorIndex_SaveEmbedding_LevelRules(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)
	v := store.VectorIndex()
	ctx := context.Background()

	assert.NoError(t, v.SaveEmbedding(ctx, "a1", []float32{1, 0}, domain.IndexingLevelSummary))
	assert.NoError(t, v.SaveEmbedding(ctx, "a1", []float32{1, 0}, domain.IndexingLevelDetail))
	assert.ErrorIs(t, v.SaveEmbedding(ctx, "c", []float32{1, 0}, domain.IndexingLevelDetail), domain.ErrInvalidLevel)
	assert.ErrorIs(t, v.SaveEmbedding(ctx, "a2", []float32{1, 0}, domain.IndexingLevelSummary), domain.ErrInvalidLevel)
	assert.ErrorIs(t, v.SaveEmbedding(ctx, "a2", []float32{1, 0}, domain.IndexingLevelBoth), domain.ErrInvalidLevel)
	assert.ErrorIs(t, v.SaveEmbedding(ctx, "ghost", []float32{1, 0}, domain.IndexingLevelDetail), domain.ErrNotFound)
	assert.ErrorIs(t, v.SaveEmbedding(ctx, "a2", []float32{1, 0, 0}, domain.IndexingLevelDetail),
		domain.ErrDimensionMismatch)
}

func TestVectorIndex_SimilaritySearch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	seedTree(t, store)
	v := store.VectorIndex()
	ctx := context.Background()
	require.NoError(t, v.SaveEmbedding(ctx, "a1", []float32{1, 0}, domain.IndexingLevelDetail))
	require.NoError(t, v.SaveEmbedding(ctx, "a2", []float32{0.6, 0.8}, domain.IndexingLevelDetail))

	hits, err := v.SimilaritySearch(ctx, []float32{0, 1}, domain.IndexingLevelDetail, 5, "labor")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, domain.ChunkID("a2"), hits[0].ChunkID)
	assert.InDelta(t, 0.8, hits[0].Similarity, 1e-6)

	filtered, err := v.SimilaritySearch(ctx, []float32{0, 1}, domain.IndexingLevelDetail, 5, "other")
	require.NoError(t, err)
	assert.Empty(t, filtered)

	_, err = v.SimilaritySearch(ctx, []float32{0, 1, 0}, domain.IndexingLevelDetail, 5, "")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	stored, err := v.GetEmbedding(ctx, "a2", domain.IndexingLevelDetail)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, stored)
}

func TestFloat32Conversion_RoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Store holds documents, chunk trees and both vector indexes in memory.
// It backs the "memory" storage backend and the service tests.
type Store struct {
	mu        sync.RWMutex
	documents map[domain.DocumentID]domain.Document
	chunks    map[domain.ChunkID]domain.Chunk
	order     map[domain.DocumentID][]domain.ChunkID
	closure   map[domain.DocumentID][]domain.ClosureEntry
	ancestors map[domain.ChunkID][]domain.ClosureEntry
	vectors   map[domain.IndexingLevel]map[domain.ChunkID][]float32
	log       *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for consistency warnings.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		documents: make(map[domain.DocumentID]domain.Document),
		chunks:    make(map[domain.ChunkID]domain.Chunk),
		order:     make(map[domain.DocumentID][]domain.ChunkID),
		closure:   make(map[domain.DocumentID][]domain.ClosureEntry),
		ancestors: make(map[domain.ChunkID][]domain.ClosureEntry),
		vectors: map[domain.IndexingLevel]map[domain.ChunkID][]float32{
			domain.IndexingLevelSummary: make(map[domain.ChunkID][]float32),
			domain.IndexingLevelDetail:  make(map[domain.ChunkID][]float32),
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HierarchyStore returns the hierarchy view of the store.
func (s *Store) HierarchyStore() *HierarchyStore {
	return &HierarchyStore{s: s}
}

// VectorIndex returns the vector view of the store.
func (s *Store) VectorIndex() *VectorIndex {
	return &VectorIndex{s: s}
}

// ==================== HierarchyStore ====================

// Ensure HierarchyStore implements the interface.
var _ driven.HierarchyStore = (*HierarchyStore)(nil)

// HierarchyStore is the in-memory implementation of driven.HierarchyStore.
type HierarchyStore struct {
	s *Store
}

// NewHierarchyStore creates a hierarchy store over a fresh Store.
func NewHierarchyStore() *HierarchyStore {
	return NewStore().HierarchyStore()
}

// SaveDocument inserts or updates document metadata.
func (h *HierarchyStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	for id, other := range h.s.documents {
		if id != doc.ID && other.SourceFile == doc.SourceFile {
			return fmt.Errorf("%w: source %s already indexed as %s", domain.ErrInvalidInput, doc.SourceFile, id)
		}
	}

	now := time.Now()
	saved := *doc
	if existing, ok := h.s.documents[doc.ID]; ok {
		saved.CreatedAt = existing.CreatedAt
	} else if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	saved.Metadata = copyMap(doc.Metadata)
	h.s.documents[doc.ID] = saved
	return nil
}

// SaveChunksBatch inserts chunks, refreshing those that already exist.
// Either every chunk is stored or none is.
func (h *HierarchyStore) SaveChunksBatch(_ context.Context, chunks []domain.Chunk) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	pending := make(map[domain.ChunkID]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := h.s.documents[c.DocumentID]; !ok {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, c.DocumentID)
		}
		if c.HasParent() {
			_, stored := h.s.chunks[c.ParentID]
			if !stored && !pending[c.ParentID] {
				return fmt.Errorf("%w: parent %s of chunk %s", domain.ErrNotFound, c.ParentID, c.ID)
			}
		}
		pending[c.ID] = true
	}

	now := time.Now()
	for i := range chunks {
		c := chunks[i]
		if label, ok := domain.EncodePathLabel(c.Path, c.Depth); !ok {
			h.s.log.Warn("path label does not match depth",
				"chunk", c.ID, "label", label, "depth", c.Depth)
		}
		if existing, ok := h.s.chunks[c.ID]; ok {
			existing.Content = c.Content
			existing.Path = c.Path
			existing.Depth = c.Depth
			existing.CharCount = c.CharCount
			h.s.chunks[c.ID] = existing
			continue
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.Metadata = copyMap(c.Metadata)
		c.ChildIDs = append([]domain.ChunkID(nil), c.ChildIDs...)
		h.s.chunks[c.ID] = c
		h.s.order[c.DocumentID] = append(h.s.order[c.DocumentID], c.ID)
	}
	return nil
}

// BuildClosureTable recomputes the closure rows of a document.
func (h *HierarchyStore) BuildClosureTable(_ context.Context, documentID domain.DocumentID) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	for _, id := range h.s.order[documentID] {
		delete(h.s.ancestors, id)
	}

	chunks := h.s.documentChunks(documentID)
	entries := domain.ComputeClosure(chunks)
	h.s.closure[documentID] = entries
	for _, e := range entries {
		h.s.ancestors[e.DescendantID] = append(h.s.ancestors[e.DescendantID], e)
	}
	for _, id := range h.s.order[documentID] {
		rows := h.s.ancestors[id]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Depth < rows[j].Depth })
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (h *HierarchyStore) GetDocument(_ context.Context, id domain.DocumentID) (*domain.Document, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	doc, ok := h.s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.Metadata = copyMap(doc.Metadata)
	return &doc, nil
}

// GetDocumentBySource retrieves the document indexed from a source filename.
func (h *HierarchyStore) GetDocumentBySource(_ context.Context, sourceFile string) (*domain.Document, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	for _, doc := range h.s.documents {
		if doc.SourceFile == sourceFile {
			doc.Metadata = copyMap(doc.Metadata)
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents ordered by ID.
func (h *HierarchyStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(h.s.documents))
	for _, doc := range h.s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// DeleteDocument removes a document with its chunks, closure rows and vectors.
func (h *HierarchyStore) DeleteDocument(_ context.Context, id domain.DocumentID) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	h.s.deleteVectors(id)
	for _, chunkID := range h.s.order[id] {
		delete(h.s.chunks, chunkID)
		delete(h.s.ancestors, chunkID)
	}
	delete(h.s.order, id)
	delete(h.s.closure, id)
	delete(h.s.documents, id)
	return nil
}

// GetChunk retrieves a chunk by ID.
func (h *HierarchyStore) GetChunk(_ context.Context, id domain.ChunkID) (*domain.Chunk, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	c, ok := h.s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetChunks returns every chunk of a document in pre-order.
func (h *HierarchyStore) GetChunks(_ context.Context, documentID domain.DocumentID) ([]domain.Chunk, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	return h.s.documentChunks(documentID), nil
}

// GetChildren returns the direct children of a chunk in document order.
func (h *HierarchyStore) GetChildren(_ context.Context, id domain.ChunkID) ([]domain.Chunk, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	parent, ok := h.s.chunks[id]
	if !ok {
		return nil, nil
	}

	var children []domain.Chunk
	for _, c := range h.s.documentChunks(parent.DocumentID) {
		if c.ParentID == id {
			children = append(children, c)
		}
	}
	return children, nil
}

// GetAncestors returns the ancestors of a chunk, nearest first.
func (h *HierarchyStore) GetAncestors(_ context.Context, id domain.ChunkID, maxDepth int) ([]domain.Chunk, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	var ancestors []domain.Chunk
	for _, e := range h.s.ancestors[id] {
		if maxDepth > 0 && e.Depth > maxDepth {
			break
		}
		if c, ok := h.s.chunks[e.AncestorID]; ok {
			ancestors = append(ancestors, c)
		}
	}
	return ancestors, nil
}

// GetClosure returns the closure rows of a document.
func (h *HierarchyStore) GetClosure(_ context.Context, documentID domain.DocumentID) ([]domain.ClosureEntry, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	return append([]domain.ClosureEntry(nil), h.s.closure[documentID]...), nil
}

// DocumentStats counts what is stored for a document.
func (h *HierarchyStore) DocumentStats(_ context.Context, id domain.DocumentID) (*domain.DocumentStats, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	doc, ok := h.s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	stats := &domain.DocumentStats{
		Document:      doc,
		ChunksByType:  make(map[domain.ChunkType]int),
		ChunksByLevel: make(map[domain.IndexingLevel]int),
		ClosureRows:   len(h.s.closure[id]),
	}
	for _, chunkID := range h.s.order[id] {
		c := h.s.chunks[chunkID]
		stats.ChunksByType[c.Type]++
		stats.ChunksByLevel[c.Level]++
		if c.Depth > stats.MaxDepth {
			stats.MaxDepth = c.Depth
		}
	}
	return stats, nil
}

// documentChunks returns the chunks of a document in position order.
// Callers must hold the lock.
func (s *Store) documentChunks(documentID domain.DocumentID) []domain.Chunk {
	ids := s.order[documentID]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, s.chunks[id])
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks
}

// deleteVectors drops every vector of a document. Callers must hold the lock.
func (s *Store) deleteVectors(documentID domain.DocumentID) {
	for _, chunkID := range s.order[documentID] {
		for _, index := range s.vectors {
			delete(index, chunkID)
		}
	}
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

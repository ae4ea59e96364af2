package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is the in-memory implementation of driven.VectorIndex.
// Searches are exhaustive cosine scans.
type VectorIndex struct {
	s *Store
}

// SaveEmbedding stores or replaces the vector of a chunk in one index.
func (v *VectorIndex) SaveEmbedding(_ context.Context, chunkID domain.ChunkID, vector []float32,
	index domain.IndexingLevel) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	vectors, ok := v.s.vectors[index]
	if !ok {
		return fmt.Errorf("%w: index %q", domain.ErrInvalidLevel, index)
	}
	c, ok := v.s.chunks[chunkID]
	if !ok {
		return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
	}
	if !c.Level.Accepts(index) {
		return fmt.Errorf("%w: chunk %s is %s, not %s", domain.ErrInvalidLevel, chunkID, c.Level, index)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	if dims := dimensionOf(vectors); dims > 0 && dims != len(vector) {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vector), dims)
	}

	vectors[chunkID] = append([]float32(nil), vector...)
	return nil
}

// GetEmbedding returns the stored vector of a chunk in one index.
func (v *VectorIndex) GetEmbedding(_ context.Context, chunkID domain.ChunkID,
	index domain.IndexingLevel) ([]float32, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	vec, ok := v.s.vectors[index][chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]float32(nil), vec...), nil
}

// SimilaritySearch returns up to k hits ordered by descending similarity.
func (v *VectorIndex) SimilaritySearch(_ context.Context, query []float32, index domain.IndexingLevel, k int,
	documentID domain.DocumentID) ([]driven.VectorHit, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	vectors, ok := v.s.vectors[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %q", domain.ErrInvalidLevel, index)
	}
	if k <= 0 {
		return nil, nil
	}
	if dims := dimensionOf(vectors); dims > 0 && dims != len(query) {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), dims)
	}

	hits := make([]driven.VectorHit, 0, len(vectors))
	for chunkID, vec := range vectors {
		if documentID != "" && v.s.chunks[chunkID].DocumentID != documentID {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: domain.CosineSimilarity(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of vectors of a document in one index.
func (v *VectorIndex) Count(_ context.Context, documentID domain.DocumentID, index domain.IndexingLevel) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	n := 0
	for chunkID := range v.s.vectors[index] {
		if v.s.chunks[chunkID].DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

// DeleteDocument removes every vector of a document from both indexes.
func (v *VectorIndex) DeleteDocument(_ context.Context, documentID domain.DocumentID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	v.s.deleteVectors(documentID)
	return nil
}

func dimensionOf(vectors map[domain.ChunkID][]float32) int {
	for _, vec := range vectors {
		return len(vec)
	}
	return 0
}

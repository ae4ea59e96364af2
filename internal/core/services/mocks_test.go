package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Each dimension counts one keyword, plus a constant component so that
// no vector is zero. Texts sharing keywords land close together.
type mockEmbeddingService struct {
	keywords []string
	embedErr error

	// failAfter makes EmbedBatch fail once this many batches succeeded (0 = never).
	failAfter int

	mu      sync.Mutex
	batches int
	queries []string
}

func newMockEmbedder(keywords ...string) *mockEmbeddingService {
	return &mockEmbeddingService{keywords: keywords}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, len(m.keywords)+1)
	for i, kw := range m.keywords {
		v[i] = float32(strings.Count(text, kw))
	}
	v[len(m.keywords)] = 0.1
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	m.queries = append(m.queries, text)
	m.mu.Unlock()
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && m.batches >= m.failAfter {
		return nil, domain.TransientEmbeddingError(fmt.Errorf("server busy"))
	}
	m.batches++
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vector(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.keywords) + 1
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.embedErr
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockSourceReader implements driven.SourceReader over an in-memory file map.
type mockSourceReader struct {
	files map[string]string
}

func (m *mockSourceReader) Read(_ context.Context, path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such file", domain.ErrReadSource, path)
	}
	return []byte(content), nil
}

func (m *mockSourceReader) List(_ context.Context, dir string, extensions []string) ([]string, error) {
	var paths []string
	for path := range m.files {
		if filepath.Dir(path) != dir {
			continue
		}
		for _, ext := range extensions {
			if strings.EqualFold(filepath.Ext(path), ext) {
				paths = append(paths, path)
				break
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// mockSourceWatcher replays a fixed list of changes and then waits for ctx.
type mockSourceWatcher struct {
	changes  []driven.SourceChange
	watchErr error
}

func (m *mockSourceWatcher) Watch(ctx context.Context, _ string, _ []string) (<-chan driven.SourceChange, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	ch := make(chan driven.SourceChange)
	go func() {
		defer close(ch)
		for _, c := range m.changes {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

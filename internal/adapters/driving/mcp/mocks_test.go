package mcp

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	passages []domain.Passage
	err      error

	lastQuery string
	lastOpts  driving.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts driving.RetrieveOptions,
) ([]domain.Passage, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.passages, m.err
}

func (m *mockRetrievalService) RetrieveResults(
	_ context.Context,
	_ string,
	_ driving.RetrieveOptions,
) ([]domain.RetrievalResult, error) {
	return nil, m.err
}

func (m *mockRetrievalService) Strategies() []string {
	return []string{domain.StrategyDirect, domain.StrategySummaryFirst}
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	stats     *domain.DocumentStats
	chunks    []domain.Chunk
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ domain.DocumentID) (*domain.Document, error) {
	if m.stats == nil {
		return nil, domain.ErrNotFound
	}
	return &m.stats.Document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ domain.DocumentID) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Stats(_ context.Context, _ domain.DocumentID) (*domain.DocumentStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return nil, domain.ErrNotFound
	}
	return m.stats, nil
}

func (m *mockDocumentService) Delete(_ context.Context, _ domain.DocumentID) error {
	return m.err
}

func (m *mockDocumentService) RebuildClosure(_ context.Context, _ domain.DocumentID) (int, error) {
	return 0, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result *driving.IndexResult
	err    error

	lastPath string
	lastOpts driving.IndexOptions
}

func (m *mockIndexService) IndexDocument(
	_ context.Context,
	path string,
	opts driving.IndexOptions,
) (*driving.IndexResult, error) {
	m.lastPath = path
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockIndexService) BulkIndex(
	_ context.Context,
	_ []string,
	_ driving.BulkOptions,
) (*driving.BulkResult, error) {
	return &driving.BulkResult{}, m.err
}

func (m *mockIndexService) IndexDirectory(
	_ context.Context,
	_ string,
	_ driving.BulkOptions,
) (*driving.BulkResult, error) {
	return &driving.BulkResult{}, m.err
}

func (m *mockIndexService) Watch(
	_ context.Context,
	_ string,
	_ driving.IndexOptions,
	_ func(driving.WatchEvent),
) error {
	return m.err
}

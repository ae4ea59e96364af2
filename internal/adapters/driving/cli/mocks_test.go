package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// mockIndexService records calls and returns canned results.
type mockIndexService struct {
	result *driving.IndexResult
	bulk   *driving.BulkResult
	err    error

	events []driving.WatchEvent

	files    []string
	dirs     []string
	lastOpts driving.BulkOptions
	watched  string
}

func (m *mockIndexService) IndexDocument(_ context.Context, path string, opts driving.IndexOptions) (*driving.IndexResult, error) {
	m.files = append(m.files, path)
	m.lastOpts = driving.BulkOptions{IndexOptions: opts}
	return m.result, m.err
}

func (m *mockIndexService) BulkIndex(_ context.Context, paths []string, opts driving.BulkOptions) (*driving.BulkResult, error) {
	m.files = append(m.files, paths...)
	m.lastOpts = opts
	return m.bulkResult(), m.err
}

func (m *mockIndexService) IndexDirectory(_ context.Context, dir string, opts driving.BulkOptions) (*driving.BulkResult, error) {
	m.dirs = append(m.dirs, dir)
	m.lastOpts = opts
	return m.bulkResult(), m.err
}

func (m *mockIndexService) Watch(_ context.Context, dir string, _ driving.IndexOptions, report func(driving.WatchEvent)) error {
	m.watched = dir
	for _, ev := range m.events {
		report(ev)
	}
	return nil
}

func (m *mockIndexService) bulkResult() *driving.BulkResult {
	if m.bulk != nil {
		return m.bulk
	}
	return &driving.BulkResult{RunID: "run-1"}
}

// mockRetrievalService returns canned passages.
type mockRetrievalService struct {
	passages  []domain.Passage
	err       error
	lastQuery string
	lastOpts  driving.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts driving.RetrieveOptions) ([]domain.Passage, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.passages, m.err
}

func (m *mockRetrievalService) RetrieveResults(_ context.Context, _ string, _ driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	return nil, m.err
}

func (m *mockRetrievalService) Strategies() []string {
	return []string{domain.StrategyDirect, domain.StrategySummaryFirst}
}

// mockDocumentService serves a fixed set of documents.
type mockDocumentService struct {
	documents []domain.Document
	stats     *domain.DocumentStats
	chunks    []domain.Chunk
	err       error
	deleted   []domain.DocumentID
	rebuilt   []domain.DocumentID
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id domain.DocumentID) (*domain.Document, error) {
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
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

func (m *mockDocumentService) Delete(_ context.Context, id domain.DocumentID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) RebuildClosure(_ context.Context, id domain.DocumentID) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.rebuilt = append(m.rebuilt, id)
	return 9, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	saved       *domain.AppSettings
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	m.saved = settings
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.pingErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// testServices is what setupTestServices installed.
type testServices struct {
	index     *mockIndexService
	retrieval *mockRetrievalService
	documents *mockDocumentService
	settings  *mockSettingsService
}

// setupTestServices installs mock services and restores the previous
// ones when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		index:     &mockIndexService{},
		retrieval: &mockRetrievalService{},
		documents: &mockDocumentService{},
		settings:  newMockSettingsService(),
	}

	origIndex, origRetrieval, origDocuments, origSettings := indexService, retrievalService, documentService, settingsService
	origBootstrap := bootstrap
	indexService = ts.index
	retrievalService = ts.retrieval
	documentService = ts.documents
	settingsService = ts.settings
	bootstrap = nil

	t.Cleanup(func() {
		indexService, retrievalService, documentService, settingsService = origIndex, origRetrieval, origDocuments, origSettings
		bootstrap = origBootstrap
	})
	return ts
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables that persist between executions.
func resetFlags() {
	indexForce, indexSkipErrors, indexWatch, indexJSON = false, false, false, false
	indexConcurrency = 0
	indexStrategy, indexCategory, indexDocVersion, indexEffectiveDate = "", "", "", ""
	queryK, queryMaxLength = 0, 0
	queryDocument, queryStrategy = "", ""
	queryJSON = false
	mcpPort, mcpHost, mcpReadOnly = 0, "localhost", false
}

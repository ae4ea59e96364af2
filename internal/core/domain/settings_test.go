package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppSettings_AreValid(t *testing.T) {
	s := DefaultAppSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, StorageBackendSQLite, s.Storage.Backend)
	assert.Equal(t, 800, s.Chunking.MaxChunkSize)
	assert.Equal(t, 100, s.Chunking.Overlap)
	assert.Equal(t, 3, s.Retrieval.SummaryK)
	assert.Equal(t, 2, s.Retrieval.DetailPerSummary)
	assert.Equal(t, 2, s.Retrieval.MaxParentDepth)
	assert.Equal(t, 8, s.Embedding.BatchSize)
}

func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
		want   error
	}{
		{"bad backend", func(s *AppSettings) { s.Storage.Backend = "mysql" }, ErrInvalidInput},
		{"postgres without dsn", func(s *AppSettings) { s.Storage.Backend = StorageBackendPostgres }, ErrInvalidInput},
		{"bad provider", func(s *AppSettings) { s.Embedding.Provider = "cohere" }, ErrInvalidInput},
		{"overlap too large", func(s *AppSettings) { s.Chunking.Overlap = 800 }, ErrInvalidInput},
		{"negative overlap", func(s *AppSettings) { s.Chunking.Overlap = -1 }, ErrInvalidInput},
		{"unknown strategy", func(s *AppSettings) { s.Retrieval.Strategy = "hybrid" }, ErrUnknownStrategy},
		{"zero k", func(s *AppSettings) { s.Retrieval.K = 0 }, ErrInvalidInput},
		{"zero concurrency", func(s *AppSettings) { s.Index.Concurrency = 0 }, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestStorageBackend_IsValid(t *testing.T) {
	assert.True(t, StorageBackendMemory.IsValid())
	assert.True(t, StorageBackendPostgres.IsValid())
	assert.False(t, StorageBackend("").IsValid())
	assert.True(t, AIProviderOllama.IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
}

func TestAIProvider_Description(t *testing.T) {
	for _, p := range AllAIProviders() {
		assert.NotEqual(t, "Unknown", p.Description(), p)
		assert.NotEmpty(t, DefaultEmbeddingModels()[p], p)
		assert.Contains(t, EmbeddingDimensions(), DefaultEmbeddingModels()[p])
	}
	assert.Equal(t, "Unknown", AIProvider("anthropic").Description())
}

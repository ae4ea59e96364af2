package domain

import (
	"fmt"
	"time"
)

// StorageBackend selects where hierarchies and vectors are persisted.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendSQLite is the embedded single-file store.
	StorageBackendSQLite StorageBackend = "sqlite"

	// StorageBackendPostgres uses PostgreSQL with ltree and pgvector.
	StorageBackendPostgres StorageBackend = "postgres"

	// StorageBackendMemory keeps everything in process memory.
	StorageBackendMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendSQLite, StorageBackendPostgres, StorageBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is any OpenAI-compatible /embeddings endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible endpoint"
	default:
		return "Unknown"
	}
}

// AllAIProviders returns every supported embedding provider.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama}
}

// DefaultEmbeddingModels returns the default model for each provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// Retrieval strategy names.
const (
	// StrategySummaryFirst searches summaries, then expands to details.
	StrategySummaryFirst = "summary_first"

	// StrategyDirect searches the detail index only.
	StrategyDirect = "direct"
)

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend selects the store implementation.
	Backend StorageBackend

	// DataDir is where the SQLite database lives.
	DataDir string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI-compatible endpoints).
	APIKey string

	// Dimensions overrides the vector size for unknown models.
	Dimensions int

	// BatchSize is how many texts are sent per request.
	BatchSize int

	// RequestsPerSecond caps the request rate; 0 disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once.
	Burst int

	// Timeout bounds a single request.
	Timeout time.Duration
}

// ChunkingSettings holds hierarchy construction configuration.
type ChunkingSettings struct {
	// MaxChunkSize is the largest node, in characters, before splitting.
	MaxChunkSize int

	// Overlap is how many characters consecutive splits share.
	Overlap int
}

// RetrievalSettings holds query configuration.
type RetrievalSettings struct {
	// Strategy is the default retrieval strategy name.
	Strategy string

	// K is the default number of results.
	K int

	// SummaryK is how many summaries phase one retrieves.
	SummaryK int

	// DetailPerSummary caps details taken under each summary.
	DetailPerSummary int

	// MaxParentDepth bounds the ancestor chain of the direct strategy.
	MaxParentDepth int

	// ContentMaxLength truncates rendered passages; 0 disables truncation.
	ContentMaxLength int
}

// IndexSettings holds bulk indexing configuration.
type IndexSettings struct {
	// Extensions lists the file suffixes picked up from directories.
	Extensions []string

	// Concurrency is how many documents are indexed at once.
	Concurrency int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Storage holds persistence settings.
	Storage StorageSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Chunking holds hierarchy construction settings.
	Chunking ChunkingSettings

	// Retrieval holds query settings.
	Retrieval RetrievalSettings

	// Index holds bulk indexing settings.
	Index IndexSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend: StorageBackendSQLite,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     "text-embedding-3-small",
			BatchSize: 8,
			Burst:     1,
			Timeout:   60 * time.Second,
		},
		Chunking: ChunkingSettings{
			MaxChunkSize: 800,
			Overlap:      100,
		},
		Retrieval: RetrievalSettings{
			Strategy:         StrategySummaryFirst,
			K:                5,
			SummaryK:         3,
			DetailPerSummary: 2,
			MaxParentDepth:   2,
		},
		Index: IndexSettings{
			Extensions:  []string{".md", ".txt"},
			Concurrency: 1,
		},
	}
}

// Validate checks the settings for values no component can work with.
func (s *AppSettings) Validate() error {
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", ErrInvalidInput, s.Storage.Backend)
	}
	if s.Storage.Backend == StorageBackendPostgres && s.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend requires a DSN", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive", ErrInvalidInput)
	}
	if s.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive", ErrInvalidInput)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.MaxChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, max chunk size)", ErrInvalidInput)
	}
	if s.Retrieval.Strategy != StrategySummaryFirst && s.Retrieval.Strategy != StrategyDirect {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Retrieval.Strategy)
	}
	if s.Retrieval.K <= 0 || s.Retrieval.SummaryK <= 0 || s.Retrieval.DetailPerSummary <= 0 {
		return fmt.Errorf("%w: retrieval counts must be positive", ErrInvalidInput)
	}
	if s.Index.Concurrency <= 0 {
		return fmt.Errorf("%w: index concurrency must be positive", ErrInvalidInput)
	}
	return nil
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		"bge-m3":            1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

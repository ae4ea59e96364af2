package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageBackend    = "storage.backend"
	keyStorageDataDir    = "storage.data_dir"
	keyStoragePostgres   = "storage.postgres_dsn"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedBurst        = "embedding.burst"
	keyEmbedTimeout      = "embedding.timeout"
	keyChunkMaxSize      = "chunking.max_chunk_size"
	keyChunkOverlap      = "chunking.overlap"
	keyRetrievalStrategy = "retrieval.strategy"
	keyRetrievalK        = "retrieval.top_k"
	keyRetrievalSummaryK = "retrieval.summary_k"
	keyRetrievalDetails  = "retrieval.detail_per_summary"
	keyRetrievalDepth    = "retrieval.max_parent_depth"
	keyRetrievalMaxLen   = "retrieval.content_max_length"
	keyIndexExtensions   = "index.extensions"
	keyIndexConcurrency  = "index.concurrency"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvDBPath        = "HIERAG_DB_PATH"
	EnvPostgresDSN   = "HIERAG_POSTGRES_DSN"
	EnvEmbedProvider = "HIERAG_EMBED_PROVIDER"
	EnvEmbedBaseURL  = "EMBED_API_BASE"
	EnvEmbedAPIKey   = "EMBED_API_KEY"
	EnvEmbedModel    = "EMBED_MODEL_NAME"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service. aiValidator is
// optional and only used by ValidateEmbeddingConfig. lookupEnv resolves
// environment overrides; nil uses the process environment.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	lookupEnv func(string) (string, bool),
) *SettingsService {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   lookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(defaults.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			PostgresDSN: s.configStore.GetString(keyStoragePostgres),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // empty selects the provider default
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDimensions),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
			Burst:             s.getInt(keyEmbedBurst, defaults.Embedding.Burst),
			Timeout:           s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
		},
		Chunking: domain.ChunkingSettings{
			MaxChunkSize: s.getInt(keyChunkMaxSize, defaults.Chunking.MaxChunkSize),
			Overlap:      s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			Strategy:         s.getString(keyRetrievalStrategy, defaults.Retrieval.Strategy),
			K:                s.getInt(keyRetrievalK, defaults.Retrieval.K),
			SummaryK:         s.getInt(keyRetrievalSummaryK, defaults.Retrieval.SummaryK),
			DetailPerSummary: s.getInt(keyRetrievalDetails, defaults.Retrieval.DetailPerSummary),
			MaxParentDepth:   s.getInt(keyRetrievalDepth, defaults.Retrieval.MaxParentDepth),
			ContentMaxLength: s.configStore.GetInt(keyRetrievalMaxLen),
		},
		Index: domain.IndexSettings{
			Extensions:  s.getStringSlice(keyIndexExtensions, defaults.Index.Extensions),
			Concurrency: s.getInt(keyIndexConcurrency, defaults.Index.Concurrency),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv overlays environment variables on top of file values.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.lookupEnv(EnvDBPath); ok && v != "" {
		settings.Storage.DataDir = v
	}
	if v, ok := s.lookupEnv(EnvPostgresDSN); ok && v != "" {
		settings.Storage.PostgresDSN = v
		if _, set := s.configStore.Get(keyStorageBackend); !set {
			settings.Storage.Backend = domain.StorageBackendPostgres
		}
	}
	if v, ok := s.lookupEnv(EnvEmbedProvider); ok {
		if p := domain.AIProvider(v); p.IsValid() {
			settings.Embedding.Provider = p
		}
	}
	if v, ok := s.lookupEnv(EnvEmbedBaseURL); ok && v != "" {
		settings.Embedding.BaseURL = v
	}
	if v, ok := s.lookupEnv(EnvEmbedAPIKey); ok && v != "" {
		settings.Embedding.APIKey = v
	}
	if v, ok := s.lookupEnv(EnvEmbedModel); ok && v != "" {
		settings.Embedding.Model = v
	}
}

// Save persists application settings. Values that came from the
// environment are written too, except secrets.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedBurst, settings.Embedding.Burst},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},
		{keyChunkMaxSize, settings.Chunking.MaxChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyRetrievalStrategy, settings.Retrieval.Strategy},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalSummaryK, settings.Retrieval.SummaryK},
		{keyRetrievalDetails, settings.Retrieval.DetailPerSummary},
		{keyRetrievalDepth, settings.Retrieval.MaxParentDepth},
		{keyRetrievalMaxLen, settings.Retrieval.ContentMaxLength},
		{keyIndexExtensions, settings.Index.Extensions},
		{keyIndexConcurrency, settings.Index.Concurrency},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if _, fromEnv := s.lookupEnv(EnvEmbedAPIKey); !fromEnv {
			if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
				return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
			}
		}
	}
	if settings.Storage.PostgresDSN != "" {
		if _, fromEnv := s.lookupEnv(EnvPostgresDSN); !fromEnv {
			if err := s.configStore.Set(keyStoragePostgres, settings.Storage.PostgresDSN); err != nil {
				return fmt.Errorf("save %s: %w", keyStoragePostgres, err)
			}
		}
	}

	return s.configStore.Save()
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// ValidateEmbeddingConfig checks that the configured embedding endpoint answers.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

// getDuration accepts Go duration strings ("30s") or whole seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	default:
		if n := s.configStore.GetInt(key); n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultVal
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

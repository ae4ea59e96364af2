package driving

import "github.com/custodia-labs/hierag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings: defaults, overlaid by the
	// config file, overlaid by environment variables.
	Get() (*domain.AppSettings, error)

	// Save persists application settings to the config file.
	Save(settings *domain.AppSettings) error

	// Validate checks if current settings are usable.
	Validate() error

	// ValidateEmbeddingConfig checks that the configured embedding
	// endpoint is reachable. It is a no-op without a validator.
	ValidateEmbeddingConfig() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}

package driven

// ConfigStore is a key/value view over the configuration file.
// Keys are dot-separated section paths such as "retrieval.top_k".
// Typed getters return the zero value when a key is missing or holds an
// incompatible type, so callers can fall back to defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key is present.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set changes the working copy only. Nothing reaches storage before Save.
	Set(key string, value any) error

	// Save writes the working copy to storage.
	Save() error

	// Load replaces the working copy with what storage holds, discarding
	// unsaved changes.
	Load() error

	// Path identifies the backing file.
	Path() string
}

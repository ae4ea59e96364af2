// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - LoadDotEnv: .env loading ahead of environment overrides
package file

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/adapters/driving/cli"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestBootstrap_MemoryBackend(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "memory"

[embedding]
provider = "ollama"
model = "nomic-embed-text"
`)

	svc, cleanup, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  new(bytes.Buffer),
	}, noEnv)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, svc.Index)
	assert.NotNil(t, svc.Retrieval)
	assert.NotNil(t, svc.Documents)
	assert.NotNil(t, svc.Settings)
	assert.ElementsMatch(t, []string{domain.StrategyDirect, domain.StrategySummaryFirst}, svc.Retrieval.Strategies())

	docs, err := svc.Documents.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBootstrap_SQLiteBackend(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
[storage]
backend = "sqlite"
data_dir = "`+filepath.ToSlash(dataDir)+`"

[embedding]
provider = "ollama"
`)

	svc, cleanup, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  new(bytes.Buffer),
	}, noEnv)
	require.NoError(t, err)
	defer cleanup()

	_, err = svc.Documents.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBootstrap_MissingEmbeddingKeyStillStarts(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "memory"
`)
	logs := new(bytes.Buffer)

	svc, cleanup, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  logs,
	}, noEnv)
	require.NoError(t, err)
	defer cleanup()

	assert.Contains(t, logs.String(), "embedding service unavailable")
	_, err = svc.Index.IndexDocument(context.Background(), "labour.txt", driving.IndexOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestBootstrap_InvalidSettingsKeepsSettingsService(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "postgres"
`)
	logs := new(bytes.Buffer)

	svc, cleanup, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  logs,
	}, noEnv)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, svc.Settings)
	assert.Nil(t, svc.Index)
	assert.Nil(t, svc.Retrieval)
	assert.Contains(t, logs.String(), "settings are invalid")
}

func TestBootstrap_EnvSelectsDataDir(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "sqlite"

[embedding]
provider = "ollama"
`)
	dataDir := t.TempDir()
	env := func(key string) (string, bool) {
		if key == "HIERAG_DB_PATH" {
			return dataDir, true
		}
		return "", false
	}

	_, cleanup, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  new(bytes.Buffer),
	}, env)
	require.NoError(t, err)
	cleanup()

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestBootstrap_BadConfigFile(t *testing.T) {
	path := writeConfig(t, "[storage\nbackend=")

	_, _, err := bootstrap(context.Background(), cli.BootstrapOptions{
		ConfigPath: path,
		LogOutput:  new(bytes.Buffer),
	}, noEnv)

	assert.ErrorContains(t, err, "loading config")
}

package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "loading must not create the file")
}

func TestDefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".hierag", "config.toml"), path)
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
backend = "postgres"
postgres_dsn = "postgres://localhost/laws"

[embedding]
provider = "openai"
requests_per_second = 2.5
burst = 4

[retrieval]
top_k = 7

[index]
extensions = [".md", ".txt"]
watch = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", store.GetString("storage.backend"))
	assert.Equal(t, "postgres://localhost/laws", store.GetString("storage.postgres_dsn"))
	assert.InDelta(t, 2.5, store.GetFloat("embedding.requests_per_second"), 1e-9)
	assert.Equal(t, 4, store.GetInt("embedding.burst"))
	assert.Equal(t, 7, store.GetInt("retrieval.top_k"))
	assert.Equal(t, []string{".md", ".txt"}, store.GetStringSlice("index.extensions"))
	assert.True(t, store.GetBool("index.watch"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("i64", int64(9999)))
	require.NoError(t, store.Set("f", 0.5))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("list", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"), "wrong type reads as zero")
	assert.Equal(t, 42, store.GetInt("i"))
	assert.Equal(t, 9999, store.GetInt("i64"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.InDelta(t, 0.5, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 42.0, store.GetFloat("i"), 1e-9, "integers read as floats")
	assert.Zero(t, store.GetFloat("s"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SetDoesNotPersistUntilSave(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("retrieval.top_k", 3))

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Save())
	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveReloadWritesTables(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, store.Set("embedding.model", "bge-m3"))
	require.NoError(t, store.Set("embedding.requests_per_second", 1.5))
	require.NoError(t, store.Set("index.extensions", []string{".txt"}))
	require.NoError(t, store.Set("verbose", false))
	require.NoError(t, store.Save())

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.Contains(t, string(raw), "[storage]")

	reloaded, err := NewConfigStore(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", reloaded.GetString("storage.backend"))
	assert.Equal(t, "bge-m3", reloaded.GetString("embedding.model"))
	assert.InDelta(t, 1.5, reloaded.GetFloat("embedding.requests_per_second"), 1e-9)
	assert.Equal(t, []string{".txt"}, reloaded.GetStringSlice("index.extensions"))
	assert.False(t, reloaded.GetBool("verbose"))
}

func TestConfigStore_SaveRejectsConflictingKeys(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("embedding", "openai"))
	require.NoError(t, store.Set("embedding.model", "bge-m3"))
	assert.Error(t, store.Save())
}

func TestConfigStore_SetEmptyKey(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Set("", "x"))
}

func TestConfigStore_SaveUnmarshallableValue(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("channel", make(chan int)))
	assert.Error(t, store.Save())
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(path)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_CommentOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# Just a comment\n\n"), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := "key" + string(rune('0'+i))
			_ = store.Set(key, i)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
		}()
	}
	wg.Wait()
	assert.NoError(t, store.Save())
}

func TestConfigStore_SaveIsPrivateAndLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("embedding.api_key", "sk-secret"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConfigStore_LoadDiscardsUnsavedChanges(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("retrieval.top_k", 3))
	require.NoError(t, store.Save())
	require.NoError(t, store.Set("retrieval.top_k", 9))

	require.NoError(t, store.Load())

	assert.Equal(t, 3, store.GetInt("retrieval.top_k"))
}

package file

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

func TestSettingsStore_LoadMissingFileReturnsDefaults(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsStore_SaveLoadRoundtrip(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.ScanDir = "/srv/knowledge"
	settings.ChunkSize = 800
	settings.Embedding.Provider = "openai"
	settings.Embedding.Model = "text-embedding-3-small"
	settings.Embedding.APIKey = "sk-test"
	settings.Embedding.Dimensions = 1536
	settings.LLM.Provider = "claude"
	settings.LLM.ClaudeAPIKey = "ak-test"

	require.NoError(t, store.Save(settings))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	// Credentials in the file mean it must not be world-readable.
	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSettingsStore_LoadAppliesDefaultsToPartialFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("scan_dir = \"/docs\"\n"), 0600))

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "/docs", settings.ScanDir)
	assert.Equal(t, domain.DefaultChunkSize, settings.ChunkSize)
	assert.Equal(t, domain.DefaultTopK, settings.TopK)
}

func TestSettingsStore_LoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("scan_dir = [unclosed"), 0600))

	_, err = store.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

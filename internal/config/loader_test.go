package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoader_Load_MissingFileYieldsDefaults tests the default path when no file exists
func TestLoader_Load_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Logging.File)
}

// TestLoader_Load_ReadsFile tests file values overriding the defaults
func TestLoader_Load_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "querydesk.json")
	content := `{
		"ai": {"provider": "anthropic", "model": "claude-sonnet-4", "api_key": "sk-file"},
		"database": {"path": "/data/desk.db"},
		"approval": {"secret": "file-secret", "base_url": "https://desk.example.com"},
		"sweeper": {"enabled": true, "schedule": "0 * * * *"},
		"data_dir": "` + dir + `"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4", cfg.AI.Model)
	assert.Equal(t, "sk-file", cfg.AI.APIKey)
	assert.Equal(t, "/data/desk.db", cfg.Database.Path)
	assert.Equal(t, "https://desk.example.com", cfg.Approval.BaseURL)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Sweeper.Schedule)
	require.NoError(t, cfg.Validate())
}

// TestLoader_Load_EnvOverridesSecrets tests QUERYDESK_* environment overrides
func TestLoader_Load_EnvOverridesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "querydesk.json")
	content := `{
		"ai": {"provider": "openai", "model": "gpt-4o", "api_key": "sk-file"},
		"database": {"path": "/data/desk.db"},
		"approval": {"secret": "file-secret"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("QUERYDESK_AI_API_KEY", "sk-env")
	t.Setenv("QUERYDESK_APPROVAL_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.AI.APIKey)
	assert.Equal(t, "env-secret", cfg.Approval.Secret)
}

// TestLoader_SaveAndReload tests the save/load round trip
func TestLoader_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querydesk.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.AI.APIKey = "sk-saved"
	cfg.AI.Model = "gpt-4o-mini"
	cfg.Database.Path = "/data/saved.db"
	cfg.Approval.Secret = "saved-secret"
	require.NoError(t, loader.Save(cfg))

	got, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-saved", got.AI.APIKey)
	assert.Equal(t, "gpt-4o-mini", got.AI.Model)
	assert.Equal(t, "/data/saved.db", got.Database.Path)
}

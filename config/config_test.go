package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "crosswalk.db", cfg.Database.Path)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Server.AuthEnabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crosswalk.toml")
	content := `
[database]
path = "/var/lib/crosswalk/data.db"

[server]
port = 9001
allowed_origins = ["https://example.org"]
auth_enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/crosswalk/data.db", cfg.Database.Path)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, []string{"https://example.org"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.AuthEnabled)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("CROSSWALK_DATABASE_PATH", "/tmp/env-override.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-override.db", cfg.Database.Path)
}

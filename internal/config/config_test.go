package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Practice.Script)
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[practice]
script = "katakana"
recent-window = 20

[storage]
backend = "bolt"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Practice.Script)
	assert.Equal(t, "katakana", *cfg.Practice.Script)
	assert.Equal(t, 20, *cfg.Practice.RecentWindow)
	assert.Nil(t, cfg.Practice.Subset)
	assert.Equal(t, "bolt", *cfg.Storage.Backend)
	assert.Equal(t, "debug", *cfg.Log.Level)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[practice]\nlang = \"en\"\n"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "practice.lang")
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "kanadrill", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(dir, "kanadrill", "kanadrill.db"), DefaultDBPath("sqlite"))
	assert.Equal(t, filepath.Join(dir, "kanadrill", "kanadrill.bolt"), DefaultDBPath("bolt"))
	assert.Equal(t, filepath.Join(dir, "kanadrill", "kanadrill.log"), DefaultLogPath())
}

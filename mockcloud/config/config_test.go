package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
node = "node-1"
host = "127.0.0.1"
region = "ap-southeast-2"
data_dir = "` + dir + `"
accesskey = "AKIAEXAMPLEEXAMPLE12"

[nats]
host = "nats://127.0.0.1:4222"

[gateway]
host = "0.0.0.0:8443"
debug = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.Node)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.Host)
	assert.Equal(t, "0.0.0.0:8443", cfg.Gateway.Host)
	assert.True(t, cfg.Gateway.Debug)
	assert.Equal(t, filepath.Join(dir, "master.key"), cfg.MasterKeyPath())
	assert.Equal(t, filepath.Join(dir, "bootstrap.json"), cfg.BootstrapPath())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DataDir)
}

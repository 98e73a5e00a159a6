package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := `
server:
  addr: ":9090"
session:
  max_retries: 3
  pairing_timeout: 3m
  always_retry:
    - default
webhook:
  url: "${ZAPLOOP_WEBHOOK_URL:http://localhost:9999/hook}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Session.MaxRetries)
	assert.Equal(t, 3*time.Minute, cfg.Session.PairingTimeout)
	assert.Equal(t, []string{"default"}, cfg.Session.AlwaysRetry)
	// env placeholder falls back to its default
	assert.Equal(t, "http://localhost:9999/hook", cfg.Webhook.URL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := `
storage:
  root_dir: "${ZAPLOOP_DATA_DIR:data}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("ZAPLOOP_DATA_DIR", "/var/lib/zaploop")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/zaploop", cfg.Storage.RootDir)
}

func TestSetDefaults(t *testing.T) {
	var cfg GatewayConfig
	cfg.SetDefaults()

	assert.Equal(t, ":4001", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "whatsapp-sessions", cfg.Storage.RootDir)
	assert.Equal(t, 2, cfg.Session.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Session.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.Session.PairingTimeout)
	assert.Equal(t, 10*time.Second, cfg.Session.FlushInterval)
	assert.Equal(t, "zaploop", cfg.Webhook.Origin)
	assert.Equal(t, 100, cfg.Push.QueueSize)
	assert.Equal(t, "zaploop", cfg.Metrics.Namespace)
	assert.Equal(t, "loopback", cfg.Provider.Type)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

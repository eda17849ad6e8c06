package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "satellited.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
http_addr: "0.0.0.0:9000"
log_level: debug
modem:
  backend: remote
  address: "10.0.0.5:7450"
radios:
  watch_bluetooth: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.HTTPAddr)
	assert.Equal(t, BackendRemote, cfg.Modem.Backend)
	assert.Equal(t, "10.0.0.5:7450", cfg.Modem.Address)
	assert.True(t, cfg.Radios.WatchBluetooth)

	// Unspecified fields take defaults.
	assert.NotEmpty(t, cfg.SettingsPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "modem:\n  backend: carrier-pigeon\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown modem backend")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "http_addr: [\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSimulated, cfg.Modem.Backend)
	assert.NotEmpty(t, cfg.HTTPAddr)
}

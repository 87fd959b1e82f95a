package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "puppet", cfg.Agent.Binary)
	assert.Equal(t, "facter", cfg.Agent.Facter)
	assert.Equal(t, 60, cfg.Beacons.IntervalSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoader_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overseer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  binary: /opt/puppetlabs/bin/puppet
logging:
  level: debug
beacons:
  interval_seconds: 5
  proxies:
    p8000:
      pid_file: /run/proxies/p8000.pid
      start_command: ["proxyd", "--id", "p8000"]
data_dir: /tmp/overseer-test
`), 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/puppetlabs/bin/puppet", cfg.Agent.Binary)
	assert.Equal(t, "facter", cfg.Agent.Facter)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Beacons.IntervalSeconds)
	require.Contains(t, cfg.Beacons.Proxies, "p8000")
	assert.Equal(t, "/run/proxies/p8000.pid", cfg.Beacons.Proxies["p8000"].PidFile)
	assert.Equal(t, filepath.Join("/tmp/overseer-test", "history.db"), cfg.HistoryPath())
}

func TestLoader_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overseer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [unclosed"), 0644))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestConfig_HistoryPathOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorePath = "/srv/overseer/history.db"
	assert.Equal(t, "/srv/overseer/history.db", cfg.HistoryPath())
}

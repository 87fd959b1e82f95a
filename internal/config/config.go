package config

import (
	"os"
	"path/filepath"

	"github.com/stigmer/overseer/pkg/beacon"
)

// Config is the main overseer configuration.
type Config struct {
	// Agent holds the external configuration agent settings.
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Grains is the path of the host-description document.
	Grains string `json:"grains" mapstructure:"grains"`

	// Beacons configures beacon polling.
	Beacons BeaconsConfig `json:"beacons" mapstructure:"beacons"`

	// Serve configures the event stream endpoint.
	Serve ServeConfig `json:"serve" mapstructure:"serve"`

	// Logging configures log output.
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// DataDir is where overseer keeps its own state.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// StorePath is the run/event history database. Defaults to
	// history.db under DataDir.
	StorePath string `json:"store_path" mapstructure:"store_path"`
}

// AgentConfig selects the agent and facts binaries.
type AgentConfig struct {
	Binary  string `json:"binary" mapstructure:"binary"`
	Facter  string `json:"facter" mapstructure:"facter"`
	Timeout int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// BeaconsConfig configures the beacon scheduler and the proxy beacon.
type BeaconsConfig struct {
	IntervalSeconds int                           `json:"interval_seconds" mapstructure:"interval_seconds"`
	Cron            string                        `json:"cron" mapstructure:"cron"`
	Proxies         map[string]beacon.ProxyConfig `json:"proxies" mapstructure:"proxies"`
	WatchAgentState bool                          `json:"watch_agent_state" mapstructure:"watch_agent_state"`
}

// ServeConfig configures the websocket event stream.
type ServeConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dataDir := "/var/lib/overseer"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".overseer")
	}
	return &Config{
		Agent: AgentConfig{
			Binary: "puppet",
			Facter: "facter",
		},
		Grains: filepath.Join(dataDir, "grains.yaml"),
		Beacons: BeaconsConfig{
			IntervalSeconds: 60,
			WatchAgentState: true,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:4505",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		DataDir: dataDir,
	}
}

// HistoryPath resolves the effective history database path.
func (c *Config) HistoryPath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(c.DataDir, "history.db")
}

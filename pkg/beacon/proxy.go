package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/stigmer/overseer/pkg/execshell"
)

// probeProcess checks a pid for existence with a zero signal. A var so
// tests can stub it.
var probeProcess = func(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(syscall.Signal(0))
}

// ProxyConfig describes one managed proxy process.
type ProxyConfig struct {
	PidFile      string   `json:"pid_file" mapstructure:"pid_file"`
	StartCommand []string `json:"start_command" mapstructure:"start_command"`
}

// ProxyBeaconConfig configures the proxy beacon.
type ProxyBeaconConfig struct {
	Proxies map[string]ProxyConfig `json:"proxies" mapstructure:"proxies"`
}

// Validate checks the beacon configuration against its JSON Schema.
func (c ProxyBeaconConfig) Validate() error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("proxy beacon configuration: %w", err)
	}
	return ValidateProxyBeaconDocument(raw)
}

// ProxyBeacon restarts managed proxy processes that are not running.
type ProxyBeacon struct {
	config ProxyBeaconConfig
	runner execshell.Runner
	logger zerolog.Logger
}

// NewProxyBeacon validates the configuration and returns the beacon.
func NewProxyBeacon(config ProxyBeaconConfig, runner execshell.Runner, logger zerolog.Logger) (*ProxyBeacon, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ProxyBeacon{
		config: config,
		runner: runner,
		logger: logger,
	}, nil
}

// Name implements Beacon.
func (b *ProxyBeacon) Name() string { return "proxy" }

// Poll checks every configured proxy and starts the ones that are down.
// One event is emitted per proxy, reporting what was done.
func (b *ProxyBeacon) Poll(ctx context.Context) ([]Event, error) {
	names := make([]string, 0, len(b.config.Proxies))
	for name := range b.config.Proxies {
		names = append(names, name)
	}
	sort.Strings(names)

	events := make([]Event, 0, len(names))
	for _, name := range names {
		proxy := b.config.Proxies[name]

		if b.isRunning(proxy) {
			msg := fmt.Sprintf("Proxy %s is already running", name)
			b.logger.Debug().Str("proxy", name).Msg(msg)
			events = append(events, NewEvent(b.Name(), map[string]any{
				name: msg,
			}))
			continue
		}

		data := map[string]any{}
		if err := b.start(ctx, proxy); err != nil {
			b.logger.Error().Err(err).Str("proxy", name).Msg("Failed to start proxy")
			data[name] = fmt.Sprintf("Failed to start proxy %s: %v", name, err)
			data["error"] = err.Error()
		} else {
			data[name] = fmt.Sprintf("Proxy %s was started", name)
		}
		events = append(events, NewEvent(b.Name(), data))
	}
	return events, nil
}

func (b *ProxyBeacon) isRunning(proxy ProxyConfig) bool {
	data, err := os.ReadFile(proxy.PidFile)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return probeProcess(pid) == nil
}

func (b *ProxyBeacon) start(ctx context.Context, proxy ProxyConfig) error {
	res, err := b.runner.Run(ctx, execshell.Command{Argv: proxy.StartCommand})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("start command exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

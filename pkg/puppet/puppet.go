package puppet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/stigmer/overseer/pkg/execshell"
)

// Status strings returned by Agent.Status.
const (
	StatusDisabled      = "Administratively disabled"
	StatusApplying      = "Applying a catalog"
	StatusStaleLockfile = "Stale lockfile"
	StatusIdleDaemon    = "Idle daemon"
	StatusStalePidfile  = "Stale pidfile"
	StatusStopped       = "Stopped"
)

// signalProcess probes a pid for existence with a zero signal. It never
// creates or kills anything. A var so tests can stub it.
var signalProcess = func(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(syscall.Signal(0))
}

// Config configures an Agent.
type Config struct {
	// Binary is the agent executable. Defaults to "puppet".
	Binary string

	// Facter is the facts-collection executable. Defaults to "facter".
	Facter string

	// Platform selects the exit-code remap rendering. Defaults to the
	// platform of the running process.
	Platform Platform

	Runner execshell.Runner
	Logger zerolog.Logger
}

// Agent drives an external Puppet-compatible configuration agent. The
// agent's directory layout is queried once at construction and is
// immutable afterwards.
type Agent struct {
	runner   execshell.Runner
	binary   string
	facter   string
	platform Platform
	paths    Paths
	logger   zerolog.Logger
}

// New queries the agent's configuration printer for its directory layout
// and returns a ready Agent. Failure to execute or parse the query is
// fatal for construction.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Binary == "" {
		cfg.Binary = "puppet"
	}
	if cfg.Facter == "" {
		cfg.Facter = "facter"
	}
	if cfg.Platform == "" {
		cfg.Platform = CurrentPlatform()
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("%w: no command runner configured", ErrConfigQuery)
	}

	query := fmt.Sprintf("%s config print --render-as yaml vardir rundir confdir", cfg.Binary)
	res, err := cfg.Runner.Run(ctx, execshell.Command{Shell: query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigQuery, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigQuery, strings.TrimSpace(res.Stderr))
	}

	var printed struct {
		VarDir  string `yaml:"vardir"`
		RunDir  string `yaml:"rundir"`
		ConfDir string `yaml:"confdir"`
	}
	if err := yaml.Unmarshal([]byte(res.Stdout), &printed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigQuery, err)
	}
	if printed.VarDir == "" || printed.RunDir == "" || printed.ConfDir == "" {
		return nil, fmt.Errorf("%w: config print output missing vardir, rundir or confdir", ErrConfigQuery)
	}

	return &Agent{
		runner:   cfg.Runner,
		binary:   cfg.Binary,
		facter:   cfg.Facter,
		platform: cfg.Platform,
		paths: Paths{
			VarDir:  printed.VarDir,
			RunDir:  printed.RunDir,
			ConfDir: printed.ConfDir,
		},
		logger: cfg.Logger,
	}, nil
}

// Paths returns the agent's directory layout.
func (a *Agent) Paths() Paths {
	return a.paths
}

// Run executes an agent run. The first argument naming a subcommand
// (agent or apply) selects the run mode; everything else is passed
// through per the invocation assembly rules. The result is returned
// verbatim; callers inspect the exit code themselves. Exit code 2 is
// remapped to 0 by the command wrapper.
func (a *Agent) Run(ctx context.Context, args []string, options map[string]string) (execshell.Result, error) {
	sub := SubcommandAgent
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case string(SubcommandAgent), string(SubcommandApply):
			sub = Subcommand(arg)
		default:
			rest = append(rest, arg)
		}
	}

	inv, err := NewInvocation(sub, rest, options)
	if err != nil {
		return execshell.Result{}, err
	}

	cmdline := WrapSuccessRemap(inv.Render(a.binary, a.paths), a.platform)
	a.logger.Debug().Str("command", cmdline).Msg("Running agent")
	return a.runner.Run(ctx, execshell.Command{Shell: cmdline})
}

// Noop executes an agent run with the noop flag added.
func (a *Agent) Noop(ctx context.Context, args []string, options map[string]string) (execshell.Result, error) {
	return a.Run(ctx, append(append([]string(nil), args...), "noop"), options)
}

// Enable removes the disabled lock file. It returns false when the agent
// was not disabled to begin with.
func (a *Agent) Enable() (bool, error) {
	lockfile := a.paths.DisabledLockFile()
	if _, err := os.Stat(lockfile); err != nil {
		return false, nil
	}
	if err := os.Remove(lockfile); err != nil {
		a.logger.Error().Err(err).Str("lockfile", lockfile).Msg("Failed to enable agent")
		return false, fmt.Errorf("%w: failed to enable: %v", ErrFileAccess, err)
	}
	return true, nil
}

// Disable creates the disabled lock file with a minimal JSON payload. It
// returns false when the agent is already disabled; the existing lock
// file is left untouched.
func (a *Agent) Disable(message string) (bool, error) {
	lockfile := a.paths.DisabledLockFile()
	if _, err := os.Stat(lockfile); err == nil {
		return false, nil
	}

	// The agent chokes when the lock file holds anything but valid JSON.
	payload := []byte("{}")
	if message != "" {
		var err error
		payload, err = json.Marshal(map[string]string{"disabled_message": message})
		if err != nil {
			return false, fmt.Errorf("%w: failed to disable: %v", ErrFileAccess, err)
		}
	}

	file, err := os.OpenFile(lockfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		a.logger.Error().Err(err).Str("lockfile", lockfile).Msg("Failed to disable agent")
		return false, fmt.Errorf("%w: failed to disable: %v", ErrFileAccess, err)
	}
	defer file.Close()

	if _, err := file.Write(payload); err != nil {
		a.logger.Error().Err(err).Str("lockfile", lockfile).Msg("Failed to disable agent")
		return false, fmt.Errorf("%w: failed to disable: %v", ErrFileAccess, err)
	}
	return true, nil
}

// Status reports the agent's state from its marker files. Stale results
// are normal return values, never errors.
func (a *Agent) Status() string {
	if _, err := os.Stat(a.paths.DisabledLockFile()); err == nil {
		return StatusDisabled
	}

	if _, err := os.Stat(a.paths.RunLockFile()); err == nil {
		if pidFileAlive(a.paths.RunLockFile()) {
			return StatusApplying
		}
		return StatusStaleLockfile
	}

	if _, err := os.Stat(a.paths.AgentPidFile()); err == nil {
		if pidFileAlive(a.paths.AgentPidFile()) {
			return StatusIdleDaemon
		}
		return StatusStalePidfile
	}

	return StatusStopped
}

// PluginSync downloads plugins from the master. Returns the trimmed
// command output, empty when there was none.
func (a *Agent) PluginSync(ctx context.Context) (string, error) {
	res, err := a.runner.Run(ctx, execshell.Command{
		Shell: fmt.Sprintf("%s plugin download", a.binary),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProcessExecution, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// pidFileAlive reads a pid from path and probes the process for
// existence. Any failure to read, parse or signal means "stale".
func pidFileAlive(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return signalProcess(pid) == nil
}

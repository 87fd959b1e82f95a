package beacon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigmer/overseer/pkg/execshell"
)

type fakeRunner struct {
	calls  []execshell.Command
	result execshell.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd execshell.Command) (execshell.Result, error) {
	f.calls = append(f.calls, cmd)
	return f.result, f.err
}

func stubProbe(t *testing.T, alive map[int]bool) {
	t.Helper()
	orig := probeProcess
	t.Cleanup(func() { probeProcess = orig })
	probeProcess = func(pid int) error {
		if alive[pid] {
			return nil
		}
		return errors.New("no such process")
	}
}

func TestProxyBeaconConfig_Validate(t *testing.T) {
	err := ProxyBeaconConfig{}.Validate()
	require.Error(t, err)

	err = ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {},
	}}.Validate()
	require.Error(t, err)

	err = ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {PidFile: "/run/p8000.pid"},
	}}.Validate()
	require.Error(t, err)

	err = ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {PidFile: "/run/p8000.pid", StartCommand: []string{"proxyd", "--id", "p8000"}},
	}}.Validate()
	require.NoError(t, err)
}

func TestNewProxyBeacon_RejectsInvalidConfig(t *testing.T) {
	// Construction runs the configuration through the schema, so a bad
	// config never reaches the poll loop.
	_, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {StartCommand: []string{"proxyd"}},
	}}, &fakeRunner{}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid beacon configuration")
	assert.Contains(t, err.Error(), "pid_file")
}

func TestProxyBeacon_StartsDownProxy(t *testing.T) {
	stubProbe(t, map[int]bool{})
	dir := t.TempDir()

	runner := &fakeRunner{}
	b, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {
			PidFile:      filepath.Join(dir, "p8000.pid"),
			StartCommand: []string{"proxyd", "--id", "p8000"},
		},
	}}, runner, zerolog.Nop())
	require.NoError(t, err)

	events, err := b.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"proxyd", "--id", "p8000"}, runner.calls[0].Argv)
	assert.Equal(t, "Proxy p8000 was started", events[0].Data["p8000"])
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, "proxy", events[0].Beacon)
}

func TestProxyBeacon_RunningProxyLeftAlone(t *testing.T) {
	stubProbe(t, map[int]bool{4242: true})
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "p8000.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("4242"), 0644))

	runner := &fakeRunner{}
	b, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {PidFile: pidFile, StartCommand: []string{"proxyd"}},
	}}, runner, zerolog.Nop())
	require.NoError(t, err)

	events, err := b.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, runner.calls)
	assert.Equal(t, "Proxy p8000 is already running", events[0].Data["p8000"])
}

func TestProxyBeacon_StalePidRestarts(t *testing.T) {
	stubProbe(t, map[int]bool{})
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "p8000.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))

	runner := &fakeRunner{}
	b, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {PidFile: pidFile, StartCommand: []string{"proxyd"}},
	}}, runner, zerolog.Nop())
	require.NoError(t, err)

	_, err = b.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, runner.calls, 1)
}

func TestProxyBeacon_StartFailureReported(t *testing.T) {
	stubProbe(t, map[int]bool{})
	dir := t.TempDir()

	runner := &fakeRunner{result: execshell.Result{ExitCode: 1, Stderr: "bind failed"}}
	b, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8000": {
			PidFile:      filepath.Join(dir, "p8000.pid"),
			StartCommand: []string{"proxyd"},
		},
	}}, runner, zerolog.Nop())
	require.NoError(t, err)

	events, err := b.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Data["error"], "bind failed")
}

func TestProxyBeacon_PollOrderIsStable(t *testing.T) {
	stubProbe(t, map[int]bool{})
	dir := t.TempDir()

	runner := &fakeRunner{}
	b, err := NewProxyBeacon(ProxyBeaconConfig{Proxies: map[string]ProxyConfig{
		"p8001": {PidFile: filepath.Join(dir, "b.pid"), StartCommand: []string{"proxyd", "b"}},
		"p8000": {PidFile: filepath.Join(dir, "a.pid"), StartCommand: []string{"proxyd", "a"}},
	}}, runner, zerolog.Nop())
	require.NoError(t, err)

	events, err := b.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Contains(t, events[0].Data, "p8000")
	assert.Contains(t, events[1].Data, "p8001")
}

package beacon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigmer/overseer/pkg/execshell"
	"github.com/stigmer/overseer/pkg/puppet"
)

type configPrintRunner struct {
	vardir string
	rundir string
}

func (r *configPrintRunner) Run(context.Context, execshell.Command) (execshell.Result, error) {
	return execshell.Result{
		Stdout: fmt.Sprintf("vardir: %s\nrundir: %s\nconfdir: /etc/puppet\n", r.vardir, r.rundir),
	}, nil
}

func TestAgentStateWatcher_EmitsOnStatusChange(t *testing.T) {
	vardir := t.TempDir()
	rundir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vardir, "state"), 0755))

	agent, err := puppet.New(context.Background(), puppet.Config{
		Runner: &configPrintRunner{vardir: vardir, rundir: rundir},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var events []Event
	sink := SinkFunc(func(event Event) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})

	watcher, err := NewAgentStateWatcher(agent, sink, zerolog.Nop())
	require.NoError(t, err)
	defer watcher.Stop()

	// Disabling the agent flips the status to "Administratively disabled".
	changed, err := agent.Disable("maintenance")
	require.NoError(t, err)
	require.True(t, changed)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "agent_state", events[0].Beacon)
	assert.Equal(t, puppet.StatusDisabled, events[0].Data["status"])
	assert.Equal(t, puppet.StatusStopped, events[0].Data["previous"])
}

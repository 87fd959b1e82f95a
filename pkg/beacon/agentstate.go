package beacon

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/stigmer/overseer/pkg/puppet"
)

// AgentStateWatcher watches the configuration agent's state and run
// directories and emits an event whenever the agent status string
// changes. Filesystem events are debounced before re-evaluating.
type AgentStateWatcher struct {
	agent    *puppet.Agent
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	sink     Sink
	debounce time.Duration

	mu     sync.Mutex
	last   string
	timer  *time.Timer
	stopCh chan struct{}
}

// NewAgentStateWatcher starts watching the agent's state directories.
func NewAgentStateWatcher(agent *puppet.Agent, sink Sink, logger zerolog.Logger) (*AgentStateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &AgentStateWatcher{
		agent:    agent,
		watcher:  watcher,
		logger:   logger,
		sink:     sink,
		debounce: 500 * time.Millisecond,
		last:     agent.Status(),
		stopCh:   make(chan struct{}),
	}

	paths := agent.Paths()
	for _, dir := range []string{
		filepath.Join(paths.VarDir, "state"),
		paths.RunDir,
	} {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go w.run()
	return w, nil
}

// Stop stops the watcher.
func (w *AgentStateWatcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *AgentStateWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Trace().Str("path", event.Name).Str("op", event.Op.String()).Msg("Agent state change")
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Agent state watcher error")
		case <-w.stopCh:
			return
		}
	}
}

// schedule arms the debounce timer, resetting it on each new event.
func (w *AgentStateWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.evaluate)
}

func (w *AgentStateWatcher) evaluate() {
	status := w.agent.Status()

	w.mu.Lock()
	changed := status != w.last
	previous := w.last
	w.last = status
	w.mu.Unlock()

	if !changed {
		return
	}

	w.logger.Info().Str("status", status).Str("previous", previous).Msg("Agent status changed")
	w.sink.Publish(NewEvent("agent_state", map[string]any{
		"status":   status,
		"previous": previous,
	}))
}

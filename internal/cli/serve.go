package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stigmer/overseer/pkg/beacon"
	"github.com/stigmer/overseer/pkg/eventbus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run beacons and stream their events over websocket",
	Long: `Run the beacon scheduler and expose the resulting events as a
websocket stream on the configured address. Agent state changes are
watched and streamed as well when enabled.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.NewBus()
	busSink := beacon.SinkFunc(func(event beacon.Event) {
		bus.Publish("beacon."+event.Beacon, event)
	})

	history, err := openHistory(ctx, rt)
	if err != nil {
		return err
	}
	defer history.Close()

	var scheduler *beacon.Scheduler
	if len(rt.cfg.Beacons.Proxies) > 0 {
		scheduler, err = buildScheduler(rt)
		if err != nil {
			return err
		}
		scheduler.AddSink(busSink)
		scheduler.AddSink(history)
	}

	if rt.cfg.Beacons.WatchAgentState {
		agent, err := buildAgent(ctx, rt)
		if err != nil {
			return err
		}
		watcher, err := beacon.NewAgentStateWatcher(agent, busSink, rt.log.Logger())
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	server := eventbus.NewServer(bus, rt.log.Logger())

	group, ctx := errgroup.WithContext(ctx)
	if scheduler != nil {
		group.Go(func() error {
			if err := scheduler.Run(ctx); err != context.Canceled {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		return server.ListenAndServe(ctx, rt.cfg.Serve.Addr)
	})

	return group.Wait()
}

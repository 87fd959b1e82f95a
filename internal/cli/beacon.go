package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stigmer/overseer/internal/store"
	"github.com/stigmer/overseer/pkg/beacon"
	"github.com/stigmer/overseer/pkg/eventbus"
)

var beaconCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Run host beacons",
}

var beaconRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll all configured beacons once and print the events",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		scheduler, err := buildScheduler(rt)
		if err != nil {
			return err
		}

		var events []beacon.Event
		scheduler.AddSink(beacon.SinkFunc(func(event beacon.Event) {
			events = append(events, event)
		}))

		scheduler.PollOnce(cmd.Context())
		return printJSON(events)
	},
}

var beaconStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Poll beacons on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		scheduler, err := buildScheduler(rt)
		if err != nil {
			return err
		}

		history, err := openHistory(cmd.Context(), rt)
		if err != nil {
			return err
		}
		defer history.Close()
		scheduler.AddSink(history)

		bus := eventbus.NewBus()
		scheduler.AddSink(beacon.SinkFunc(func(event beacon.Event) {
			bus.Publish("beacon."+event.Beacon, event)
		}))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := rt.log.Logger()
		log.Info().Msg("Beacon scheduler started")
		if err := scheduler.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	beaconCmd.AddCommand(beaconRunCmd, beaconStartCmd)
	rootCmd.AddCommand(beaconCmd)
}

// buildScheduler assembles the configured beacons behind a scheduler.
func buildScheduler(rt *runtime) (*beacon.Scheduler, error) {
	schedule := beacon.Schedule{
		Interval: time.Duration(rt.cfg.Beacons.IntervalSeconds) * time.Second,
		Cron:     rt.cfg.Beacons.Cron,
	}
	scheduler, err := beacon.NewScheduler(schedule, rt.log.Logger())
	if err != nil {
		return nil, err
	}

	if len(rt.cfg.Beacons.Proxies) > 0 {
		proxyBeacon, err := beacon.NewProxyBeacon(beacon.ProxyBeaconConfig{
			Proxies: rt.cfg.Beacons.Proxies,
		}, rt.runner, rt.log.Logger())
		if err != nil {
			return nil, err
		}
		scheduler.Register(proxyBeacon)
	}

	if len(scheduler.Beacons()) == 0 {
		return nil, fmt.Errorf("no beacons configured")
	}
	return scheduler, nil
}

func openHistory(ctx context.Context, rt *runtime) (*store.Store, error) {
	history, err := store.Open(rt.cfg.HistoryPath(), rt.log.Logger())
	if err != nil {
		return nil, err
	}
	if err := history.Init(ctx); err != nil {
		history.Close()
		return nil, err
	}
	return history, nil
}

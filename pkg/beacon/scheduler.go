package beacon

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedule describes when beacons are polled: a fixed interval or a cron
// expression. Cron takes precedence when both are set.
type Schedule struct {
	Interval time.Duration
	Cron     string
}

// next returns the time of the poll after now.
func (s Schedule) next(now time.Time) (time.Time, error) {
	if s.Cron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		spec, err := parser.Parse(s.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
		}
		return spec.Next(now), nil
	}
	if s.Interval <= 0 {
		return time.Time{}, fmt.Errorf("schedule requires a positive interval or a cron expression")
	}
	return now.Add(s.Interval), nil
}

// Scheduler polls registered beacons on a schedule and delivers their
// events to the configured sinks.
type Scheduler struct {
	schedule Schedule
	beacons  []Beacon
	sinks    []Sink
	logger   zerolog.Logger
}

// NewScheduler validates the schedule and returns a scheduler.
func NewScheduler(schedule Schedule, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := schedule.next(time.Now()); err != nil {
		return nil, err
	}
	return &Scheduler{
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Register adds a beacon to the polling set.
func (s *Scheduler) Register(b Beacon) {
	s.beacons = append(s.beacons, b)
}

// Beacons returns the registered beacons.
func (s *Scheduler) Beacons() []Beacon {
	return s.beacons
}

// AddSink adds an event destination.
func (s *Scheduler) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Run polls until the context is cancelled. The first poll happens after
// one schedule period, matching the interval semantics of the host
// beacon loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next, err := s.schedule.next(time.Now())
		if err != nil {
			return err
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.PollOnce(ctx)
	}
}

// PollOnce polls every beacon once and fans the events out. Beacon
// failures are logged, never fatal to the loop.
func (s *Scheduler) PollOnce(ctx context.Context) {
	for _, b := range s.beacons {
		events, err := b.Poll(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("beacon", b.Name()).Msg("Beacon poll failed")
			continue
		}
		for _, event := range events {
			for _, sink := range s.sinks {
				sink.Publish(event)
			}
		}
	}
}

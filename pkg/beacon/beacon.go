// Package beacon polls host state and emits events: proxy processes that
// need restarting and changes to the configuration agent's run state.
package beacon

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one observation emitted by a beacon.
type Event struct {
	ID     string         `json:"id"`
	Beacon string         `json:"beacon"`
	Data   map[string]any `json:"data"`
	Time   time.Time      `json:"time"`
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(beacon string, data map[string]any) Event {
	return Event{
		ID:     uuid.New().String(),
		Beacon: beacon,
		Data:   data,
		Time:   time.Now(),
	}
}

// Beacon is a pollable event source.
type Beacon interface {
	Name() string
	Poll(ctx context.Context) ([]Event, error)
}

// Sink receives beacon events.
type Sink interface {
	Publish(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event Event)

// Publish calls the wrapped function.
func (f SinkFunc) Publish(event Event) { f(event) }

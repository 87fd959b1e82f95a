// Package eventbus fans beacon and agent events out to in-process
// subscribers and websocket clients.
package eventbus

import (
	"sync"
	"time"
)

// Envelope is the JSON event frame shared by all consumers.
type Envelope struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Seq       int64  `json:"seq"`
}

// Bus is an in-process publish/subscribe hub. Slow subscribers drop
// events rather than block the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Envelope
	nextID int
	seq    int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Envelope)}
}

// Publish delivers an event to every subscriber.
func (b *Bus) Publish(event string, data any) {
	b.mu.Lock()
	b.seq++
	msg := Envelope{
		Type:      "event",
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Seq:       b.seq,
	}
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its channel together
// with a cancel function that must be called to release it.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Envelope, 64)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

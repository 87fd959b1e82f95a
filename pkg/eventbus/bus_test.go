package eventbus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish("beacon.proxy", map[string]any{"proxy": "p8000"})
	bus.Publish("beacon.proxy", map[string]any{"proxy": "p8001"})

	first := <-sub
	second := <-sub
	assert.Equal(t, "event", first.Type)
	assert.Equal(t, "beacon.proxy", first.Event)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.NotZero(t, first.Timestamp)
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	sub, cancel := bus.Subscribe()
	cancel()

	// Publishing after cancel must not panic or block.
	bus.Publish("x", nil)

	_, open := <-sub
	assert.False(t, open)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish("flood", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestServer_StreamsEvents(t *testing.T) {
	bus := NewBus()
	server := NewServer(bus, zerolog.Nop())

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	sub, cancel := bus.Subscribe()
	defer cancel()
	go server.pump(sub)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a beat to register the client.
	time.Sleep(50 * time.Millisecond)
	bus.Publish("agent.status", map[string]any{"status": "Stopped"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"event":"agent.status"`)
	assert.Contains(t, string(payload), `"Stopped"`)
}

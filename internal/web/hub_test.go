package web

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blockedby/groupwatch/internal/fetcher"
)

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client1

	client2 := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client2

	// wait for registration
	time.Sleep(10 * time.Millisecond)

	msg := map[string]string{"type": "fetch.progress", "status": "running"}
	msgBytes, _ := json.Marshal(msg)
	hub.broadcast <- msgBytes

	select {
	case received := <-client1.send:
		assert.Equal(t, msgBytes, received)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Client 1 did not receive message")
	}

	select {
	case received := <-client2.send:
		assert.Equal(t, msgBytes, received)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Client 2 did not receive message")
	}

	// unregister client 1
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	msg2 := []byte("second message")
	hub.broadcast <- msg2

	// client 1 must not receive it, a closed channel is fine
	select {
	case received, ok := <-client1.send:
		if ok {
			t.Fatalf("Client 1 received message after unregister: %s", received)
		}
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case received := <-client2.send:
		assert.Equal(t, msg2, received)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Client 2 did not receive second message")
	}
}

func TestEventBroadcaster_Publish(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	broadcaster := NewEventBroadcaster(hub)
	event := fetcher.Event{Type: fetcher.EventFetchStart, Payload: map[string]any{"group_id": 100}}
	err := broadcaster.Publish(context.Background(), event)
	assert.NoError(t, err)

	select {
	case received := <-client.send:
		var decoded map[string]any
		assert.NoError(t, json.Unmarshal(received, &decoded))
		assert.Equal(t, "fetch.start", decoded["type"])
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive broadcast event")
	}
}

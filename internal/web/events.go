package web

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blockedby/groupwatch/internal/fetcher"
)

// EventBroadcaster forwards fetch events to websocket clients as JSON.
// It implements fetcher.EventPublisher.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster wraps the hub as a fetch event sink.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// Publish marshals the event and queues it for every connected client.
func (b *EventBroadcaster) Publish(_ context.Context, event fetcher.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal fetch event: %w", err)
	}
	b.hub.Broadcast(data)
	return nil
}

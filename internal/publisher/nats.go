// Package publisher forwards fetch events to NATS for external
// consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/groupwatch/internal/fetcher"
)

// subjectPrefix namespaces all event subjects.
const subjectPrefix = "groupwatch."

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements fetcher.EventPublisher over a NATS
// connection. Subjects follow the event type: groupwatch.fetch.start,
// groupwatch.message.new and so on.
type NATSPublisher struct {
	nc NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: conn}
}

// Publish sends the event to its subject.
func (p *NATSPublisher) Publish(_ context.Context, event fetcher.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.nc.Publish(subjectPrefix+event.Type, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

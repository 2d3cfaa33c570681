package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/blockedby/groupwatch/internal/fetcher"
)

// MockNATSClient mocks the nats client operations we need
type MockNATSClient struct {
	PublishedSubject string
	PublishedData    []byte
	PublishError     error
}

func (m *MockNATSClient) Publish(subject string, data []byte) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestNATSPublisher_Publish(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{
		nc: mock,
	}

	event := fetcher.Event{
		Type: fetcher.EventFetchStart,
		Payload: fetcher.FetchStartPayload{
			GroupID: 100,
			Group:   "@testgroup",
		},
	}

	err := pub.Publish(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.PublishedSubject != "groupwatch.fetch.start" {
		t.Errorf("subject = %s, want groupwatch.fetch.start", mock.PublishedSubject)
	}

	var decoded fetcher.Event
	if err := json.Unmarshal(mock.PublishedData, &decoded); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if decoded.Type != fetcher.EventFetchStart {
		t.Errorf("decoded type = %s, want %s", decoded.Type, fetcher.EventFetchStart)
	}
}

func TestNATSPublisher_PublishError(t *testing.T) {
	mock := &MockNATSClient{PublishError: errors.New("nats down")}
	pub := &NATSPublisher{nc: mock}

	err := pub.Publish(context.Background(), fetcher.Event{Type: fetcher.EventFetchEnd})
	if err == nil {
		t.Fatal("expected error when nats publish fails")
	}
}

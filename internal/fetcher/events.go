package fetcher

import (
	"context"
	"time"

	"github.com/blockedby/groupwatch/internal/logger"
	"github.com/blockedby/groupwatch/internal/models"
)

// Event types emitted over the fetch lifecycle.
const (
	EventFetchStart    = "fetch.start"
	EventFetchProgress = "fetch.progress"
	EventMessageNew    = "message.new"
	EventFetchEnd      = "fetch.end"
)

// Event is one fetch lifecycle notification.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// FetchStartPayload announces a new session.
type FetchStartPayload struct {
	GroupID   int64     `json:"group_id"`
	Group     string    `json:"group"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ProgressPayload reports per-item progress against the estimate.
type ProgressPayload struct {
	GroupID        int64 `json:"group_id"`
	Processed      int   `json:"processed"`
	EstimatedTotal int   `json:"estimated_total"`
}

// MessagePayload carries one processed message, its sender and the
// item error if the item failed.
type MessagePayload struct {
	Message *models.Message `json:"message,omitempty"`
	User    *models.User    `json:"user,omitempty"`
	Skipped bool            `json:"skipped,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// FetchEndPayload closes a session with final counters.
type FetchEndPayload struct {
	GroupID      int64                  `json:"group_id"`
	Status       Status                 `json:"status"`
	MessageCount int                    `json:"message_count"`
	SkippedCount int                    `json:"skipped_count"`
	ErrorCount   int                    `json:"error_count"`
	UserSummary  map[int64]UserActivity `json:"user_summary"`
	Error        string                 `json:"error,omitempty"`
}

// EventPublisher delivers fetch events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher fans one event out to several publishers.
type MultiPublisher []EventPublisher

// Publish sends the event to every publisher, logging failures and
// returning nil. A broken subscriber must not break the run.
func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			logger.Get().Warn().Err(err).Str("event", event.Type).Msg("fetcher: event publish failed")
		}
	}
	return nil
}

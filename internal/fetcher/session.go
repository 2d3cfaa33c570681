package fetcher

import "time"

// Status is the lifecycle state of a fetch session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// UserActivity accumulates per-user counters across one session.
type UserActivity struct {
	Messages  int `json:"messages"`
	Media     int `json:"media"`
	Reactions int `json:"reactions"`
}

// FetchSession holds the mutable state of a single run. It is owned by
// the orchestrator goroutine and is not safe for concurrent mutation.
type FetchSession struct {
	GroupID   int64
	StartDate time.Time
	EndDate   time.Time

	ProcessedCount int
	NewCount       int
	SkippedCount   int
	ErrorCount     int
	EstimatedTotal int

	userSummary map[int64]*UserActivity
}

// NewFetchSession starts a zeroed session for one group and window.
func NewFetchSession(groupID int64, start, end time.Time) *FetchSession {
	return &FetchSession{
		GroupID:     groupID,
		StartDate:   start,
		EndDate:     end,
		userSummary: make(map[int64]*UserActivity),
	}
}

// RecordMessage counts a newly stored message toward the user summary.
func (s *FetchSession) RecordMessage(userID int64, hasMedia bool, reactions int) {
	s.ProcessedCount++
	s.NewCount++

	activity, ok := s.userSummary[userID]
	if !ok {
		activity = &UserActivity{}
		s.userSummary[userID] = activity
	}
	activity.Messages++
	activity.Reactions += reactions
	if hasMedia {
		activity.Media++
	}
}

// RecordSkip counts a message that was already stored.
func (s *FetchSession) RecordSkip() {
	s.ProcessedCount++
	s.SkippedCount++
}

// RecordError counts a per-item failure without aborting the run.
func (s *FetchSession) RecordError() {
	s.ProcessedCount++
	s.ErrorCount++
}

// UserSummary returns a copy of the per-user counters.
func (s *FetchSession) UserSummary() map[int64]UserActivity {
	out := make(map[int64]UserActivity, len(s.userSummary))
	for id, activity := range s.userSummary {
		out[id] = *activity
	}
	return out
}

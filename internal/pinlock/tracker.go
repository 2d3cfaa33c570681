// Package pinlock tracks failed PIN attempts and enforces escalating
// timed lockouts. The PIN comparison itself belongs to the caller; the
// tracker only counts failures and answers "may I try now".
package pinlock

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedby/groupwatch/internal/models"
)

// SettingsStore persists the attempt counter and lockout deadline so
// they survive restarts.
type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

// lockoutSteps maps attempt-count thresholds to wait durations,
// ascending. The highest crossed threshold wins.
var lockoutSteps = []struct {
	threshold int
	wait      time.Duration
}{
	{5, time.Minute},
	{10, 5 * time.Minute},
	{15, 10 * time.Minute},
	{20, time.Hour},
	{25, 2 * time.Hour},
	{30, 5 * time.Hour},
	{35, 10 * time.Hour},
	{40, 24 * time.Hour},
	{45, 5 * 24 * time.Hour},
}

// LockoutStatus answers whether PIN entry is currently allowed.
type LockoutStatus struct {
	Locked           bool       `json:"locked"`
	AttemptCount     int        `json:"attempt_count"`
	Until            *time.Time `json:"until,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds,omitempty"`
}

// Tracker is the persistent failed-attempt counter.
type Tracker struct {
	settings SettingsStore
	now      func() time.Time
}

// NewTracker creates a tracker over the settings store.
func NewTracker(settings SettingsStore) *Tracker {
	return &Tracker{settings: settings, now: time.Now}
}

// IsLockedOut reports the current lockout state. An expired deadline
// is cleared lazily on read; the attempt count is kept so further
// failures keep escalating.
func (t *Tracker) IsLockedOut(ctx context.Context) (LockoutStatus, error) {
	s, err := t.settings.Get(ctx)
	if err != nil {
		return LockoutStatus{}, fmt.Errorf("load pin state: %w", err)
	}

	status := LockoutStatus{AttemptCount: s.PinAttemptCount}
	if s.PinLockoutUntil == nil {
		return status, nil
	}

	now := t.now()
	if now.Before(*s.PinLockoutUntil) {
		until := *s.PinLockoutUntil
		status.Locked = true
		status.Until = &until
		status.RemainingSeconds = int(until.Sub(now).Round(time.Second).Seconds())
		return status, nil
	}

	s.PinLockoutUntil = nil
	if err := t.settings.Save(ctx, s); err != nil {
		return LockoutStatus{}, fmt.Errorf("clear expired lockout: %w", err)
	}
	return status, nil
}

// RecordFailedAttempt increments the counter and arms a lockout when
// the new count reaches a threshold. Returns the new count and the
// wait applied (0 below the first threshold).
func (t *Tracker) RecordFailedAttempt(ctx context.Context) (int, time.Duration, error) {
	s, err := t.settings.Get(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load pin state: %w", err)
	}

	s.PinAttemptCount++
	wait := waitFor(s.PinAttemptCount)
	if wait > 0 {
		until := t.now().Add(wait)
		s.PinLockoutUntil = &until
	}

	if err := t.settings.Save(ctx, s); err != nil {
		return 0, 0, fmt.Errorf("save pin state: %w", err)
	}
	return s.PinAttemptCount, wait, nil
}

// ResetAttempts clears the counter and any lockout after a correct PIN.
func (t *Tracker) ResetAttempts(ctx context.Context) error {
	s, err := t.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load pin state: %w", err)
	}

	s.PinAttemptCount = 0
	s.PinLockoutUntil = nil

	if err := t.settings.Save(ctx, s); err != nil {
		return fmt.Errorf("save pin state: %w", err)
	}
	return nil
}

// waitFor returns the lockout duration for the given attempt count.
func waitFor(count int) time.Duration {
	var wait time.Duration
	for _, step := range lockoutSteps {
		if count >= step.threshold {
			wait = step.wait
		}
	}
	return wait
}

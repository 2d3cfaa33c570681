package pinlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/groupwatch/internal/models"
)

// memStore keeps settings in memory.
type memStore struct {
	settings models.Settings
}

func (m *memStore) Get(_ context.Context) (*models.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *models.Settings) error {
	m.settings = *s
	return nil
}

func newTestTracker(at time.Time) (*Tracker, *memStore, *time.Time) {
	store := &memStore{settings: models.Settings{ID: models.SettingsID}}
	now := at
	tracker := NewTracker(store)
	tracker.now = func() time.Time { return now }
	return tracker, store, &now
}

func TestTracker_EscalationLadder(t *testing.T) {
	tests := []struct {
		count int
		want  time.Duration
	}{
		{1, 0},
		{4, 0},
		{5, time.Minute},
		{7, time.Minute},
		{10, 5 * time.Minute},
		{15, 10 * time.Minute},
		{20, time.Hour},
		{25, 2 * time.Hour},
		{30, 5 * time.Hour},
		{35, 10 * time.Hour},
		{40, 24 * time.Hour},
		{45, 5 * 24 * time.Hour},
		{99, 5 * 24 * time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, waitFor(tt.count), "count %d", tt.count)
	}
}

func TestTracker_RecordFailedAttempt(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	tracker, store, _ := newTestTracker(base)
	ctx := context.Background()

	// first four failures only count
	for i := 1; i <= 4; i++ {
		count, wait, err := tracker.RecordFailedAttempt(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Zero(t, wait)
	}
	assert.Nil(t, store.settings.PinLockoutUntil)

	// fifth failure arms a one minute lockout
	count, wait, err := tracker.RecordFailedAttempt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, time.Minute, wait)
	require.NotNil(t, store.settings.PinLockoutUntil)
	assert.Equal(t, base.Add(time.Minute), *store.settings.PinLockoutUntil)
}

func TestTracker_IsLockedOut(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	tracker, store, now := newTestTracker(base)
	ctx := context.Background()

	status, err := tracker.IsLockedOut(ctx)
	require.NoError(t, err)
	assert.False(t, status.Locked)

	for i := 0; i < 5; i++ {
		_, _, err := tracker.RecordFailedAttempt(ctx)
		require.NoError(t, err)
	}

	status, err = tracker.IsLockedOut(ctx)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 5, status.AttemptCount)
	assert.Equal(t, 60, status.RemainingSeconds)

	// deadline passes: lockout clears lazily, counter survives
	*now = base.Add(2 * time.Minute)
	status, err = tracker.IsLockedOut(ctx)
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 5, status.AttemptCount)
	assert.Nil(t, store.settings.PinLockoutUntil)
	assert.Equal(t, 5, store.settings.PinAttemptCount)
}

// counters persist across tracker instances, like across restarts
func TestTracker_StatePersists(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	tracker, store, _ := newTestTracker(base)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := tracker.RecordFailedAttempt(ctx)
		require.NoError(t, err)
	}

	fresh := NewTracker(store)
	fresh.now = func() time.Time { return base.Add(30 * time.Second) }

	status, err := fresh.IsLockedOut(ctx)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 30, status.RemainingSeconds)
}

func TestTracker_ResetAttempts(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	tracker, store, _ := newTestTracker(base)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _, err := tracker.RecordFailedAttempt(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, tracker.ResetAttempts(ctx))

	assert.Zero(t, store.settings.PinAttemptCount)
	assert.Nil(t, store.settings.PinLockoutUntil)

	status, err := tracker.IsLockedOut(ctx)
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/groupwatch/internal/models"
)

func TestGroupsRepository_Upsert(t *testing.T) {
	repo := NewGroupsRepository(newTestDB(t))
	ctx := context.Background()

	g := &models.Group{ID: 100, Username: "testgroup", Title: "Test Group"}
	require.NoError(t, repo.Upsert(ctx, g))
	assert.True(t, g.IsActive)

	// second upsert updates attributes, keeps state
	lastFetch := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastFetch(ctx, 100, lastFetch))

	g2 := &models.Group{ID: 100, Username: "testgroup", Title: "Renamed Group"}
	require.NoError(t, repo.Upsert(ctx, g2))

	stored, err := repo.GetByID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Renamed Group", stored.Title)
	require.NotNil(t, stored.LastFetchDate)
	assert.True(t, stored.LastFetchDate.Equal(lastFetch))
}

func TestGroupsRepository_GetByID_NotFound(t *testing.T) {
	repo := NewGroupsRepository(newTestDB(t))

	g, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGroupsRepository_GetByUsername(t *testing.T) {
	repo := NewGroupsRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Group{ID: 100, Username: "golang_chat"}))

	g, err := repo.GetByUsername(ctx, "golang_chat")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int64(100), g.ID)

	g, err = repo.GetByUsername(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGroupsRepository_CountActive(t *testing.T) {
	repo := NewGroupsRepository(newTestDB(t))
	ctx := context.Background()

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, repo.Upsert(ctx, &models.Group{ID: 1, Username: "a"}))
	require.NoError(t, repo.Upsert(ctx, &models.Group{ID: 2, Username: "b"}))

	count, err = repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

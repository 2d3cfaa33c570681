package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blockedby/groupwatch/internal/models"
)

// GroupsRepository handles groups table operations.
type GroupsRepository struct {
	db *gorm.DB
}

// NewGroupsRepository creates a new groups repository.
func NewGroupsRepository(db *gorm.DB) *GroupsRepository {
	return &GroupsRepository{db: db}
}

// Upsert creates the group or refreshes its resolvable attributes.
func (r *GroupsRepository) Upsert(ctx context.Context, g *models.Group) error {
	var existing models.Group
	err := r.db.WithContext(ctx).Where("id = ?", g.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g.IsActive = true
		if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup group: %w", err)
	}

	updates := map[string]any{
		"access_hash":  g.AccessHash,
		"username":     g.Username,
		"title":        g.Title,
		"is_forum":     g.IsForum,
		"member_count": g.MemberCount,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	g.LastFetchDate = existing.LastFetchDate
	g.IsActive = existing.IsActive
	return nil
}

// GetByID returns a group by telegram id, or nil if not stored.
func (r *GroupsRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	return &g, nil
}

// GetByUsername returns a group by username, or nil if not stored.
func (r *GroupsRepository) GetByUsername(ctx context.Context, username string) (*models.Group, error) {
	var g models.Group
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group by username: %w", err)
	}
	return &g, nil
}

// List returns all stored groups, most recently fetched first.
func (r *GroupsRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Order("last_fetch_date DESC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// UpdateLastFetch sets the group's last successful fetch timestamp.
func (r *GroupsRepository) UpdateLastFetch(ctx context.Context, id int64, ts time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ?", id).
		Update("last_fetch_date", ts).Error
	if err != nil {
		return fmt.Errorf("update last fetch: %w", err)
	}
	return nil
}

// CountActive returns the number of active tracked groups.
func (r *GroupsRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active groups: %w", err)
	}
	return count, nil
}

// Package repository provides data access for the local sqlite store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blockedby/groupwatch/internal/models"
)

// ErrDuplicateMessage is returned when inserting an already-stored key.
var ErrDuplicateMessage = errors.New("message already exists")

// MessagesRepository handles messages and deletion-marker tables.
type MessagesRepository struct {
	db *gorm.DB
}

// NewMessagesRepository creates a new messages repository.
func NewMessagesRepository(db *gorm.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Insert stores a new message row.
// The (message_id, group_id) unique index rejects duplicates.
func (r *MessagesRepository) Insert(ctx context.Context, m *models.Message) error {
	if m.Tags == nil {
		m.Tags = models.StringList{}
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		// glebarez translates UNIQUE violations only when TranslateError is on
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Exists checks if a row with the given composite key exists,
// regardless of its delete state.
func (r *MessagesRepository) Exists(ctx context.Context, messageID, groupID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check message exists: %w", err)
	}
	return count > 0, nil
}

// IsDeleted checks if the composite key has a deletion marker.
func (r *MessagesRepository) IsDeleted(ctx context.Context, messageID, groupID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeletedMessage{}).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check message deleted: %w", err)
	}
	return count > 0, nil
}

// SoftDelete inserts a deletion marker and flips the is_deleted flag.
// Idempotent: marking an already-deleted message is a no-op.
func (r *MessagesRepository) SoftDelete(ctx context.Context, messageID, groupID int64) error {
	marker := models.DeletedMessage{
		MessageID: messageID,
		GroupID:   groupID,
		DeletedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		FirstOrCreate(&marker).Error
	if err != nil {
		return fmt.Errorf("create deletion marker: %w", err)
	}

	err = r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		Update("is_deleted", true).Error
	if err != nil {
		return fmt.Errorf("mark message deleted: %w", err)
	}
	return nil
}

// Restore removes the deletion marker and clears the flag.
// This is an explicit user action, never performed by a fetch.
func (r *MessagesRepository) Restore(ctx context.Context, messageID, groupID int64) error {
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		Delete(&models.DeletedMessage{}).Error
	if err != nil {
		return fmt.Errorf("remove deletion marker: %w", err)
	}

	err = r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("message_id = ? AND group_id = ?", messageID, groupID).
		Update("is_deleted", false).Error
	if err != nil {
		return fmt.Errorf("restore message: %w", err)
	}
	return nil
}

// ListByGroup returns the most recent non-deleted messages for a
// group, optionally filtered by a normalized tag. Soft-deleted rows
// stay in the table for undo but never show up in listings.
func (r *MessagesRepository) ListByGroup(ctx context.Context, groupID int64, tag string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.db.WithContext(ctx).
		Where("group_id = ? AND is_deleted = ?", groupID, false).
		Order("date_sent DESC").
		Limit(limit)

	if tag != "" {
		// tags column holds a JSON array of lower-cased strings
		q = q.Where("tags LIKE ?", fmt.Sprintf("%%%q%%", tag))
	}

	var messages []models.Message
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CountByGroup returns the number of stored messages for a group.
func (r *MessagesRepository) CountByGroup(ctx context.Context, groupID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// UserActivityRow is one row of the per-user activity summary.
type UserActivityRow struct {
	UserID    int64 `json:"user_id"`
	Messages  int64 `json:"messages"`
	Media     int64 `json:"media"`
	Reactions int64 `json:"reactions"`
}

// UserSummary aggregates stored message activity per user for a group.
func (r *MessagesRepository) UserSummary(ctx context.Context, groupID int64) ([]UserActivityRow, error) {
	var rows []UserActivityRow
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("user_id, COUNT(*) AS messages, SUM(CASE WHEN has_media THEN 1 ELSE 0 END) AS media, SUM(reactions_count) AS reactions").
		Where("group_id = ? AND is_deleted = ?", groupID, false).
		Group("user_id").
		Order("messages DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("user summary: %w", err)
	}
	return rows, nil
}

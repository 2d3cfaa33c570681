package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/blockedby/groupwatch/internal/models"
)

// UsersRepository handles users table operations.
type UsersRepository struct {
	db *gorm.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *gorm.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Upsert creates the user or refreshes display attributes.
func (r *UsersRepository) Upsert(ctx context.Context, u *models.User) error {
	var existing models.User
	err := r.db.WithContext(ctx).Where("id = ?", u.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	updates := map[string]any{
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_bot":     u.IsBot,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// GetByID returns a user by telegram id, or nil if not stored.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/blockedby/groupwatch/internal/models"
)

// SettingsRepository handles the single-row settings table.
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings row, creating it with defaults on first use.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := r.db.WithContext(ctx).Where("id = ?", models.SettingsID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.Settings{
			ID:                models.SettingsID,
			FetchDelaySeconds: 1.0,
			MaxGroups:         10,
		}
		if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
			return nil, fmt.Errorf("create settings: %w", err)
		}
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Save persists the settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *models.Settings) error {
	s.ID = models.SettingsID
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

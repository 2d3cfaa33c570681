package models

import "time"

// SettingsID is the fixed primary key of the single settings row.
const SettingsID = 1

// Settings is the single-row application settings record.
// It carries the PIN attempt state alongside fetch tuning persisted
// across restarts.
type Settings struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	// pin lockout state
	PinAttemptCount int        `json:"pin_attempt_count"`
	PinLockoutUntil *time.Time `json:"pin_lockout_until,omitempty"`

	// fetch tuning
	FetchDelaySeconds float64 `json:"fetch_delay_seconds"`
	MaxGroups         int     `json:"max_groups"`

	UpdatedAt time.Time `json:"updated_at"`
}

package models

import "time"

// Group represents a tracked telegram group.
type Group struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	AccessHash int64  `json:"access_hash"`
	Username   string `json:"username"`
	Title      string `json:"title"`
	IsForum    bool   `json:"is_forum"`

	// stats
	MemberCount int `json:"member_count"`

	// state
	LastFetchDate *time.Time `json:"last_fetch_date,omitempty"`
	IsActive      bool       `json:"is_active"`

	// timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

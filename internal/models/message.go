// Package models defines shared data types for the application.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the classified kind of a message.
type MessageType string

// MessageType constants define the possible message classifications.
const (
	MessageTypeText     MessageType = "text"
	MessageTypePhoto    MessageType = "photo"
	MessageTypeVideo    MessageType = "video"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
)

// IsValid checks if the message type is one of the known kinds.
func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypePhoto, MessageTypeVideo,
		MessageTypeSticker, MessageTypeDocument, MessageTypeAudio:
		return true
	}
	return false
}

// StringList is a JSON-encoded list of strings stored in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("unsupported string list source type %T", src)
	}
}

// Message represents one fetched group message.
// (MessageID, GroupID) is the natural composite key; re-fetching an existing
// pair never creates a second row.
type Message struct {
	ID int64 `json:"id" gorm:"primaryKey;autoIncrement"`

	// identification
	MessageID int64 `json:"message_id" gorm:"uniqueIndex:idx_messages_key"`
	GroupID   int64 `json:"group_id" gorm:"uniqueIndex:idx_messages_key"`
	UserID    int64 `json:"user_id"`

	// content
	Content  string    `json:"content"`
	Caption  string    `json:"caption"`
	DateSent time.Time `json:"date_sent"`

	// classification
	HasMedia       bool        `json:"has_media"`
	MediaType      string      `json:"media_type"`
	MediaCount     int         `json:"media_count"`
	MessageLink    string      `json:"message_link"`
	MessageType    MessageType `json:"message_type"`
	HasSticker     bool        `json:"has_sticker"`
	StickerEmoji   *string     `json:"sticker_emoji,omitempty"`
	HasLink        bool        `json:"has_link"`
	Tags           StringList  `json:"tags" gorm:"type:text"`
	ReactionsCount int         `json:"reactions_count"`

	// state
	IsDeleted bool `json:"is_deleted"`

	// timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeletedMessage marks a message as locally soft-deleted.
// Presence of a marker is authoritative: a later fetch of the same key must
// not resurrect the message.
type DeletedMessage struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID int64     `json:"message_id" gorm:"uniqueIndex:idx_deleted_key"`
	GroupID   int64     `json:"group_id" gorm:"uniqueIndex:idx_deleted_key"`
	DeletedAt time.Time `json:"deleted_at"`
}

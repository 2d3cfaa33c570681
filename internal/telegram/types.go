package telegram

import (
	"time"
)

// Media kinds extracted from message media.
const (
	MediaKindPhoto    = "photo"
	MediaKindVideo    = "video"
	MediaKindAudio    = "audio"
	MediaKindSticker  = "sticker"
	MediaKindDocument = "document"
)

// Group represents a resolved telegram group or supergroup.
type Group struct {
	ID          int64  // group id
	AccessHash  int64  // access hash for api calls (0 for basic groups)
	Username    string // group username (without @), empty for private groups
	Title       string // group title
	IsForum     bool   // whether it's a forum-type supergroup
	IsBasic     bool   // basic chat (not a channel-backed supergroup)
	MemberCount int    // participant count when the server reports it
}

// RawMessage represents one fetched group message before classification.
type RawMessage struct {
	ID             int       // message id (unique within group)
	GroupID        int64     // group id
	FromID         int64     // sender user id (0 for anonymous/channel posts)
	Text           string    // text content (empty for media messages)
	Caption        string    // media caption (empty for text messages)
	Date           time.Time // message creation timestamp
	MediaKind      string    // "", photo, video, sticker, document, audio
	StickerEmoji   string    // sticker's unicode glyph if any
	GroupedID      int64     // album id (0 if not part of an album)
	MediaCount     int       // album size as seen within one page, 1 for lone media
	ReactionsCount int       // total reactions on the message
	Views          int       // view count
}

// RawUser represents a message sender as reported by the history response.
type RawUser struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Bot       bool
}

// Page is one batch of history along with its senders.
type Page struct {
	Messages []RawMessage
	Users    map[int64]RawUser
	// Total is the server-reported size of the full history,
	// 0 when the server does not report a count.
	Total int
}

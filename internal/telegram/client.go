package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"

	"github.com/blockedby/groupwatch/internal/logger"
)

// Client wraps the gotgproto client and provides high-level group operations.
// It uses the Manager to access the underlying protocol client so it stays
// usable across re-auth.
type Client struct {
	manager     *Manager
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a new telegram client wrapper using the Manager.
func NewClient(manager *Manager) *Client {
	return &Client{
		manager:     manager,
		rateLimiter: DefaultRateLimiter(),
		log:         logger.Get(),
	}
}

// Close stops the client via the manager.
func (c *Client) Close() {
	if c.manager != nil {
		c.manager.Stop()
	}
}

// GetStatus returns the current status of the telegram client.
func (c *Client) GetStatus() Status {
	return c.manager.GetStatus()
}

// getProto returns the current protocol client if available.
func (c *Client) getProto() (*gotgproto.Client, error) {
	proto := c.manager.GetClient()
	if proto == nil {
		return nil, fmt.Errorf("telegram client not authorized")
	}
	return proto, nil
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() (*tg.Client, error) {
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	return proto.API(), nil
}

// normalizeGroupRef strips @ prefixes and t.me link forms from a group reference.
func normalizeGroupRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "https://t.me/")
	ref = strings.TrimPrefix(ref, "http://t.me/")
	ref = strings.TrimPrefix(ref, "t.me/")
	ref = strings.TrimPrefix(ref, "@")
	return strings.TrimSuffix(ref, "/")
}

// ResolveGroup resolves a group username, @name or t.me link to group info.
// Broadcast channels are rejected: only groups and supergroups are trackable.
func (c *Client) ResolveGroup(ctx context.Context, ref string) (*Group, error) {
	username := normalizeGroupRef(ref)

	c.log.Debug().Str("username", username).Msg("telegram: waiting for rate limiter")
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.log.Error().Err(err).Msg("telegram: rate limiter wait failed")
		return nil, err
	}

	c.log.Info().Str("username", username).Msg("telegram: resolving group username")
	api, err := c.API()
	if err != nil {
		return nil, err
	}
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		if wait := FloodWaitSeconds(err); wait > 0 {
			c.log.Warn().Int("wait_seconds", wait).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
			c.rateLimiter.SetFloodWait(wait)
		}
		c.log.Error().Err(err).Str("username", username).Msg("telegram: failed to resolve username")
		return nil, fmt.Errorf("resolve group %s: %w", username, err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("group not found: %s", username)
	}

	switch chat := resolved.Chats[0].(type) {
	case *tg.Channel:
		if chat.Broadcast {
			return nil, fmt.Errorf("not a group: %s is a broadcast channel", username)
		}
		return c.resolveChannelGroup(ctx, chat, username)
	case *tg.Chat:
		return &Group{
			ID:          chat.ID,
			Title:       chat.Title,
			IsBasic:     true,
			MemberCount: chat.ParticipantsCount,
		}, nil
	default:
		return nil, fmt.Errorf("not a group: %s", username)
	}
}

// resolveChannelGroup fetches full info for a channel-backed supergroup.
func (c *Client) resolveChannelGroup(ctx context.Context, ch *tg.Channel, username string) (*Group, error) {
	api, err := c.API()
	if err != nil {
		return nil, fmt.Errorf("get api: %w", err)
	}
	fullCh, err := api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  ch.ID,
		AccessHash: ch.AccessHash,
	})
	if err != nil {
		if wait := FloodWaitSeconds(err); wait > 0 {
			c.rateLimiter.SetFloodWait(wait)
		}
		return nil, fmt.Errorf("get full channel: %w", err)
	}

	chFull, ok := fullCh.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, fmt.Errorf("unexpected channel type")
	}

	// forum flag is at position 30 in ChannelFull flags
	isForum := chFull.Flags.Has(30)

	return &Group{
		ID:          ch.ID,
		AccessHash:  ch.AccessHash,
		Username:    username,
		Title:       ch.Title,
		IsForum:     isForum,
		MemberCount: chFull.ParticipantsCount,
	}, nil
}

// inputPeer builds the request peer for a resolved group.
func inputPeer(group *Group) tg.InputPeerClass {
	if group.IsBasic {
		return &tg.InputPeerChat{ChatID: group.ID}
	}
	return &tg.InputPeerChannel{
		ChannelID:  group.ID,
		AccessHash: group.AccessHash,
	}
}

// GetHistoryPage fetches one page of group history.
// offsetID: fetch messages older than this id (0 = newest)
// offsetDate: fetch messages older than this unix time (0 = no bound)
// limit: max messages per page (telegram caps at 100)
func (c *Client) GetHistoryPage(ctx context.Context, group *Group, offsetID int, offsetDate int, limit int) (*Page, error) {
	if limit > 100 {
		limit = 100 // telegram api limit
	}

	c.log.Debug().Int64("group_id", group.ID).Int("offset_id", offsetID).Int("limit", limit).Msg("telegram: waiting for rate limiter before GetHistoryPage")
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.log.Error().Err(err).Msg("telegram: rate limiter wait failed")
		return nil, err
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}
	history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:       inputPeer(group),
		OffsetID:   offsetID,
		OffsetDate: offsetDate,
		Limit:      limit,
	})
	if err != nil {
		if wait := FloodWaitSeconds(err); wait > 0 {
			c.log.Warn().Int("wait_seconds", wait).Msg("telegram: FLOOD_WAIT detected in GetHistoryPage, updating rate limiter")
			c.rateLimiter.SetFloodWait(wait)
		}
		c.log.Error().Err(err).Int("offset_id", offsetID).Msg("telegram: MessagesGetHistory failed")
		return nil, fmt.Errorf("get history: %w", err)
	}

	return extractPage(history, group), nil
}

// extractPage converts a telegram history response to a Page.
func extractPage(messagesClass tg.MessagesMessagesClass, group *Group) *Page {
	page := &Page{Users: make(map[int64]RawUser)}

	var rawMessages []tg.MessageClass
	var rawUsers []tg.UserClass

	switch h := messagesClass.(type) {
	case *tg.MessagesChannelMessages:
		rawMessages = h.Messages
		rawUsers = h.Users
		page.Total = h.Count
	case *tg.MessagesMessagesSlice:
		rawMessages = h.Messages
		rawUsers = h.Users
		page.Total = h.Count
	case *tg.MessagesMessages:
		rawMessages = h.Messages
		rawUsers = h.Users
		page.Total = len(h.Messages)
	}

	for _, u := range rawUsers {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}
		page.Users[user.ID] = RawUser{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Bot:       user.Bot,
		}
	}

	albumSizes := make(map[int64]int)
	for _, msg := range rawMessages {
		if m := parseMessage(msg, group); m != nil {
			page.Messages = append(page.Messages, *m)
			if m.GroupedID != 0 && m.MediaKind != "" {
				albumSizes[m.GroupedID]++
			}
		}
	}

	// album size is only visible within the fetched page
	for i := range page.Messages {
		m := &page.Messages[i]
		switch {
		case m.GroupedID != 0 && m.MediaKind != "":
			m.MediaCount = albumSizes[m.GroupedID]
		case m.MediaKind != "":
			m.MediaCount = 1
		}
	}

	return page
}

// parseMessage converts a single telegram message to a RawMessage.
func parseMessage(msg tg.MessageClass, group *Group) *RawMessage {
	m, ok := msg.(*tg.Message)
	if !ok {
		return nil
	}

	raw := &RawMessage{
		ID:        m.ID,
		GroupID:   group.ID,
		Date:      time.Unix(int64(m.Date), 0),
		GroupedID: m.GroupedID,
		Views:     m.Views,
	}

	if peer, ok := m.FromID.(*tg.PeerUser); ok {
		raw.FromID = peer.UserID
	}

	raw.MediaKind, raw.StickerEmoji = extractMediaKind(m.Media)
	if raw.MediaKind != "" {
		// for media messages the message field carries the caption
		raw.Caption = m.Message
	} else {
		raw.Text = m.Message
	}

	for _, r := range m.Reactions.Results {
		raw.ReactionsCount += r.Count
	}

	return raw
}

// extractMediaKind maps telegram media to our media kind vocabulary.
// Returns the kind ("" for no media) and the sticker emoji if any.
func extractMediaKind(media tg.MessageMediaClass) (string, string) {
	switch m := media.(type) {
	case nil:
		return "", ""
	case *tg.MessageMediaPhoto:
		return MediaKindPhoto, ""
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return MediaKindDocument, ""
		}
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeSticker:
				return MediaKindSticker, a.Alt
			case *tg.DocumentAttributeVideo:
				return MediaKindVideo, ""
			case *tg.DocumentAttributeAudio:
				return MediaKindAudio, ""
			}
		}
		return MediaKindDocument, ""
	default:
		return "", ""
	}
}

// BuildMessageLink returns the public t.me link for a message.
func BuildMessageLink(group *Group, messageID int) string {
	if group.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", group.Username, messageID)
	}
	return fmt.Sprintf("https://t.me/c/%d/%d", group.ID, messageID)
}

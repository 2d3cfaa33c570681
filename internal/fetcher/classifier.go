package fetcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/blockedby/groupwatch/internal/models"
	"github.com/blockedby/groupwatch/internal/telegram"
)

// tagPattern matches hashtags made of letters, digits and underscores
// in any script, CJK included.
var tagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// linkMarkers are the substrings that flag a message as containing a link.
var linkMarkers = []string{"http://", "https://", "www."}

// Classification is the derived view of a raw message: its type,
// media attributes, link flag and extracted tags.
type Classification struct {
	MessageType  models.MessageType
	HasMedia     bool
	MediaType    string
	MediaCount   int
	HasSticker   bool
	StickerEmoji *string
	HasLink      bool
	Tags         []string
}

// Classify derives the classification of a raw message. The result is
// a pure function of the input.
func Classify(raw telegram.RawMessage) Classification {
	c := Classification{
		MediaType:  raw.MediaKind,
		MediaCount: raw.MediaCount,
		HasLink:    HasLink(raw.Text) || HasLink(raw.Caption),
		Tags:       ExtractTags(raw.Text, raw.Caption),
	}

	switch raw.MediaKind {
	case telegram.MediaKindPhoto:
		c.MessageType = models.MessageTypePhoto
		c.HasMedia = true
	case telegram.MediaKindVideo:
		c.MessageType = models.MessageTypeVideo
		c.HasMedia = true
	case telegram.MediaKindAudio:
		c.MessageType = models.MessageTypeAudio
		c.HasMedia = true
	case telegram.MediaKindDocument:
		c.MessageType = models.MessageTypeDocument
		c.HasMedia = true
	case telegram.MediaKindSticker:
		c.MessageType = models.MessageTypeSticker
		c.HasSticker = true
		if raw.StickerEmoji != "" {
			emoji := raw.StickerEmoji
			c.StickerEmoji = &emoji
		}
	default:
		c.MessageType = models.MessageTypeText
	}

	if c.HasMedia && c.MediaCount == 0 {
		c.MediaCount = 1
	}

	return c
}

// HasLink reports whether the text contains a URL-like substring.
func HasLink(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range linkMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// ExtractTags collects hashtags from content and caption, lower-cased,
// deduplicated and sorted.
func ExtractTags(content, caption string) []string {
	seen := make(map[string]struct{})
	for _, text := range []string{content, caption} {
		for _, match := range tagPattern.FindAllStringSubmatch(text, -1) {
			tag := strings.ToLower(match[1])
			seen[tag] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

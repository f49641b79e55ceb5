// Package chat defines the raw inbound message shape observed by the harness
// and the filters used to pick a bot's replies out of the stream.
package chat

import (
	"context"
	"time"

	"github.com/zjrosen/botcheck/internal/cachemanager"
	"github.com/zjrosen/botcheck/internal/eventwatcher"
)

// Embed is a rich content block attached to a message.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is one message-created event as delivered by the backend.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	AuthorID    string       `json:"author_id"`
	Content     string       `json:"content"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RepliesIn accepts messages posted in channelID by anyone other than selfID.
func RepliesIn(channelID, selfID string) eventwatcher.Filter[Message, Message] {
	return func(m Message) (Message, bool) {
		if m.ChannelID != channelID || m.AuthorID == selfID {
			return Message{}, false
		}
		return m, true
	}
}

// DedupeKey is the seen-cache key Dedupe records for m.
func DedupeKey(m Message) string {
	return m.ChannelID + "/" + m.ID
}

// Dedupe wraps filter so a message ID seen before within ttl is rejected.
// Messages without an ID are never treated as duplicates. Only accepted
// messages are recorded, at filter time; a caller whose Intake then fails
// should Delete DedupeKey(m) so a redelivery is not suppressed.
func Dedupe(filter eventwatcher.Filter[Message, Message], seen cachemanager.CacheManager[string, struct{}], ttl time.Duration) eventwatcher.Filter[Message, Message] {
	return func(m Message) (Message, bool) {
		out, ok := filter(m)
		if !ok {
			return Message{}, false
		}
		if m.ID == "" {
			return out, true
		}
		if !seen.Add(context.Background(), DedupeKey(m), struct{}{}, ttl) {
			return Message{}, false
		}
		return out, true
	}
}

// Package platform insulates the core from the upstream chat SDK's object
// shapes. The rest of the bot only ever sees these narrow types.
package platform

import (
	"context"
	"time"
)

// Message is the minimal view of an inbound chat message the core reads.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	IsBot       bool
	GuildID     string // empty for direct messages
	ChannelID   string
	Content     string
	CreatedAt   time.Time
	MentionIDs  []string
	MentionsBot bool
	ReplyToID   string
}

// IsDM reports whether the message arrived outside any server.
func (m Message) IsDM() bool {
	return m.GuildID == ""
}

// ConversationID scopes durable session state: the guild for server messages,
// a fixed marker for DMs.
func (m Message) ConversationID() string {
	if m.GuildID != "" {
		return m.GuildID
	}
	return "dm"
}

// History fetches recently observed messages in a channel, newest first.
type History interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// RoleDirectory resolves a member's role IDs within a guild.
type RoleDirectory interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

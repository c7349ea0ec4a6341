package platform

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// FromDiscord converts a discordgo message into the narrow core view.
// botID identifies the bot's own user for mention detection.
func FromDiscord(m *discordgo.Message, botID string) Message {
	out := Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		out.IsBot = m.Author.Bot
		if m.Member != nil && m.Member.Nick != "" {
			out.AuthorName = m.Member.Nick
		}
	}
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		out.MentionIDs = append(out.MentionIDs, u.ID)
		if u.ID == botID {
			out.MentionsBot = true
		}
	}
	if m.MessageReference != nil {
		out.ReplyToID = m.MessageReference.MessageID
	}
	return out
}

// DiscordDirectory adapts a live discordgo session to the History and
// RoleDirectory contracts.
type DiscordDirectory struct {
	session *discordgo.Session
	botID   string
}

func NewDiscordDirectory(session *discordgo.Session, botID string) *DiscordDirectory {
	return &DiscordDirectory{session: session, botID: botID}
}

func (d *DiscordDirectory) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	msgs, err := d.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel messages: %w", err)
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, FromDiscord(m, d.botID))
	}
	return out, nil
}

func (d *DiscordDirectory) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := d.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch guild member: %w", err)
		}
	}
	return member.Roles, nil
}

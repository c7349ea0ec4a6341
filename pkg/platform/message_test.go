package platform

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestMessageScope(t *testing.T) {
	dm := Message{ChannelID: "c1"}
	if !dm.IsDM() {
		t.Fatal("message without guild should be a DM")
	}
	if dm.ConversationID() != "dm" {
		t.Fatalf("dm conversation id = %q", dm.ConversationID())
	}

	guild := Message{GuildID: "g1", ChannelID: "c1"}
	if guild.IsDM() {
		t.Fatal("guild message should not be a DM")
	}
	if guild.ConversationID() != "g1" {
		t.Fatalf("guild conversation id = %q", guild.ConversationID())
	}
}

func TestFromDiscord(t *testing.T) {
	ts := time.Now()
	src := &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "<@999> hola",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "u1", Username: "ana", Bot: false},
		Member:    &discordgo.Member{Nick: "Anita"},
		Mentions:  []*discordgo.User{{ID: "999"}, {ID: "123"}},
		MessageReference: &discordgo.MessageReference{
			MessageID: "m0",
		},
	}

	got := FromDiscord(src, "999")

	if got.ID != "m1" || got.AuthorID != "u1" || got.GuildID != "g1" || got.ChannelID != "c1" {
		t.Fatalf("identity fields: %+v", got)
	}
	if got.AuthorName != "Anita" {
		t.Fatalf("nickname should win over username, got %q", got.AuthorName)
	}
	if !got.MentionsBot {
		t.Fatal("bot mention not detected")
	}
	if len(got.MentionIDs) != 2 {
		t.Fatalf("mention ids: %v", got.MentionIDs)
	}
	if got.ReplyToID != "m0" {
		t.Fatalf("reply reference: %q", got.ReplyToID)
	}
	if !got.CreatedAt.Equal(ts) {
		t.Fatalf("timestamp: %v", got.CreatedAt)
	}
}

func TestFromDiscordBotAuthor(t *testing.T) {
	src := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "b1", Username: "otherbot", Bot: true},
	}

	got := FromDiscord(src, "999")
	if !got.IsBot {
		t.Fatal("bot author flag lost")
	}
	if got.AuthorName != "otherbot" {
		t.Fatalf("author name: %q", got.AuthorName)
	}
}

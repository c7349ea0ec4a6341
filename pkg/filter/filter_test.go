package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/platform"
)

const botID = "999"

type stubRoles struct {
	roles []string
	err   error
}

func (s stubRoles) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	return s.roles, s.err
}

func guildMessage(content string) platform.Message {
	return platform.Message{
		ID:        "m1",
		AuthorID:  "u1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestExtractCleanContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"bot mention stripped", "<@999> hola <@123> http://x.com", "hola @usuario [enlace]"},
		{"nickname mention", "<@!999> qué tal", "qué tal"},
		{"role and channel", "mirad <@&55> en <#77>", "mirad @rol en #canal"},
		{"https link", "esto https://example.com/a?b=c vale", "esto [enlace] vale"},
		{"whitespace collapsed", "  hola \n\t mundo  ", "hola mundo"},
		{"only bot mention", "<@999>", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, ExtractCleanContent(c.content, botID))
		})
	}
}

func TestFilterContentChecks(t *testing.T) {
	f := New(config.FilterConfig{}, nil, botID)
	ctx := context.Background()

	cases := []struct {
		name    string
		content string
		result  Result
	}{
		{"empty", "", Block},
		{"whitespace only", "   ", Block},
		{"single char", "a", Block},
		{"two chars", "ey", Allow},
		{"normal", "hola kora", Allow},
		{"only mentions", "<@999> <@123>", Block},
		{"too long", strings.Repeat("a", 2001), Block},
		{"at the limit", strings.Repeat("a", 2000), Allow},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := f.Filter(ctx, guildMessage(c.content))
			require.Equal(t, c.result, d.Result, "reason: %s", d.Reason)
		})
	}
}

func TestFilterBlocksBots(t *testing.T) {
	f := New(config.FilterConfig{}, nil, botID)

	msg := guildMessage("hola")
	msg.IsBot = true

	d := f.Filter(context.Background(), msg)
	if d.Result != Block || d.Level != StageSender {
		t.Fatalf("bot sender should block at sender stage: %+v", d)
	}
}

func TestFilterChannelBlocklist(t *testing.T) {
	f := New(config.FilterConfig{BlockedChannels: config.IDList{"c1"}}, nil, botID)

	d := f.Filter(context.Background(), guildMessage("hola"))
	if d.Result != Block || d.Level != StageChannel {
		t.Fatalf("blocklisted channel should block: %+v", d)
	}
}

func TestFilterChannelAllowlist(t *testing.T) {
	f := New(config.FilterConfig{AllowedChannels: config.IDList{"c2"}}, nil, botID)
	ctx := context.Background()

	if d := f.Filter(ctx, guildMessage("hola")); d.Result != Block {
		t.Fatalf("channel off the allowlist should block: %+v", d)
	}

	msg := guildMessage("hola")
	msg.ChannelID = "c2"
	if d := f.Filter(ctx, msg); d.Result == Block {
		t.Fatalf("allowlisted channel should pass: %+v", d)
	}

	// Allowlist never applies to DMs.
	dm := platform.Message{AuthorID: "u1", ChannelID: "dm-chan", Content: "hola", CreatedAt: time.Now()}
	if d := f.Filter(ctx, dm); d.Result == Block {
		t.Fatalf("DM should bypass the channel allowlist: %+v", d)
	}
}

func TestFilterRoleCheck(t *testing.T) {
	cfg := config.FilterConfig{AllowedRoles: config.IDList{"r1"}}
	ctx := context.Background()

	t.Run("matching role allows", func(t *testing.T) {
		f := New(cfg, stubRoles{roles: []string{"r0", "r1"}}, botID)
		d := f.Filter(ctx, guildMessage("hola"))
		require.Equal(t, Allow, d.Result)
	})

	t.Run("missing role blocks", func(t *testing.T) {
		f := New(cfg, stubRoles{roles: []string{"r9"}}, botID)
		d := f.Filter(ctx, guildMessage("hola"))
		require.Equal(t, Block, d.Result)
		require.Equal(t, StageRole, d.Level)
	})

	t.Run("lookup failure fails open", func(t *testing.T) {
		f := New(cfg, stubRoles{err: errors.New("api down")}, botID)
		d := f.Filter(ctx, guildMessage("hola"))
		require.True(t, d.Allowed())
		require.Equal(t, Analyze, d.Result)
	})

	t.Run("dm skips role check", func(t *testing.T) {
		f := New(cfg, stubRoles{err: errors.New("must not be called")}, botID)
		dm := platform.Message{AuthorID: "u1", ChannelID: "dm-chan", Content: "hola", CreatedAt: time.Now()}
		d := f.Filter(ctx, dm)
		require.Equal(t, Allow, d.Result)
	})

	t.Run("no configured roles skips check", func(t *testing.T) {
		f := New(config.FilterConfig{}, stubRoles{err: errors.New("must not be called")}, botID)
		d := f.Filter(ctx, guildMessage("hola"))
		require.Equal(t, Allow, d.Result)
	})
}

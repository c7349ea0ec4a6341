// Package filter implements the admission pipeline that runs before any
// expensive context assembly. A message is either allowed through, blocked
// silently, or allowed with a non-binding marker asking for closer analysis.
package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/platform"
)

// Result is the admission verdict.
type Result string

const (
	Allow   Result = "allow"
	Block   Result = "block"
	Analyze Result = "analyze"
)

// Stage names which check produced a decision.
const (
	StageSender  = "sender"
	StageContent = "content"
	StageChannel = "channel"
	StageRole    = "role"
)

// Decision is transient and never persisted.
type Decision struct {
	Result Result
	Reason string
	Level  string
}

func (d Decision) Allowed() bool { return d.Result != Block }

var (
	userMentionRegex    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionRegex    = regexp.MustCompile(`<@&\d+>`)
	channelMentionRegex = regexp.MustCompile(`<#\d+>`)
	urlRegex            = regexp.MustCompile(`https?://\S+`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

// ContextFilter runs three ordered checks, short-circuiting on the first
// block: content, channel, then role.
type ContextFilter struct {
	cfg   config.FilterConfig
	roles platform.RoleDirectory
	botID string
	log   zerolog.Logger
}

func New(cfg config.FilterConfig, roles platform.RoleDirectory, botID string) *ContextFilter {
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 2
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 2000
	}
	return &ContextFilter{
		cfg:   cfg,
		roles: roles,
		botID: botID,
		log:   logger.For("filter"),
	}
}

// Filter decides whether msg is admitted. Blocked messages are dropped with
// no reply; the reason is diagnostic only.
func (f *ContextFilter) Filter(ctx context.Context, msg platform.Message) Decision {
	if msg.IsBot {
		return Decision{Result: Block, Reason: "sender is a bot", Level: StageSender}
	}

	if d, ok := f.checkContent(msg); !ok {
		return d
	}
	if d, ok := f.checkChannel(msg); !ok {
		return d
	}
	return f.checkRole(ctx, msg)
}

func (f *ContextFilter) checkContent(msg platform.Message) (Decision, bool) {
	if strings.TrimSpace(msg.Content) == "" {
		return Decision{Result: Block, Reason: "empty content", Level: StageContent}, false
	}
	clean := ExtractCleanContent(msg.Content, f.botID)
	if clean == "" {
		return Decision{Result: Block, Reason: "only mentions or links", Level: StageContent}, false
	}
	if n := len([]rune(clean)); n < f.cfg.MinContentLength {
		return Decision{Result: Block, Reason: "content too short", Level: StageContent}, false
	} else if n > f.cfg.MaxContentLength {
		return Decision{Result: Block, Reason: "content too long", Level: StageContent}, false
	}
	return Decision{}, true
}

func (f *ContextFilter) checkChannel(msg platform.Message) (Decision, bool) {
	for _, id := range f.cfg.BlockedChannels {
		if id == msg.ChannelID {
			return Decision{Result: Block, Reason: "channel is blocklisted", Level: StageChannel}, false
		}
	}
	if len(f.cfg.AllowedChannels) > 0 && !msg.IsDM() {
		allowed := false
		for _, id := range f.cfg.AllowedChannels {
			if id == msg.ChannelID {
				allowed = true
				break
			}
		}
		if !allowed {
			return Decision{Result: Block, Reason: "channel not on allowlist", Level: StageChannel}, false
		}
	}
	return Decision{}, true
}

// checkRole fails open: a role lookup error admits the message and logs a
// warning. Availability wins over strict enforcement here.
func (f *ContextFilter) checkRole(ctx context.Context, msg platform.Message) Decision {
	if len(f.cfg.AllowedRoles) == 0 || msg.IsDM() || f.roles == nil {
		return Decision{Result: Allow, Level: StageRole}
	}

	roles, err := f.roles.MemberRoles(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		f.log.Warn().Err(err).
			Str("user_id", msg.AuthorID).
			Str("guild_id", msg.GuildID).
			Msg("role lookup failed, admitting message")
		return Decision{Result: Analyze, Reason: "role lookup failed", Level: StageRole}
	}

	for _, have := range roles {
		for _, want := range f.cfg.AllowedRoles {
			if have == want {
				return Decision{Result: Allow, Level: StageRole}
			}
		}
	}
	return Decision{Result: Block, Reason: "sender lacks an allowed role", Level: StageRole}
}

// ExtractCleanContent strips the bot's own mention entirely, replaces other
// mention tokens and URLs with generic placeholders, and collapses
// whitespace. Pure function, no side effects.
func ExtractCleanContent(content, botID string) string {
	out := userMentionRegex.ReplaceAllStringFunc(content, func(tok string) string {
		if botID != "" && userMentionRegex.FindStringSubmatch(tok)[1] == botID {
			return ""
		}
		return "@usuario"
	})
	out = roleMentionRegex.ReplaceAllString(out, "@rol")
	out = channelMentionRegex.ReplaceAllString(out, "#canal")
	out = urlRegex.ReplaceAllString(out, "[enlace]")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(out, " "))
}

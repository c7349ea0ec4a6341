package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/memory"
	"github.com/davigomz/kora/pkg/platform"
	"github.com/davigomz/kora/pkg/prompt"
)

// AIContext is the prompt-ready bundle handed to the provider. Rebuilt on
// every request, never persisted.
type AIContext struct {
	ConversationHistory []memory.ConversationMessage
	SystemPrompt        string
	TokenCount          int
}

var slashCommandRegex = regexp.MustCompile(`^\s*/\w+`)

// ContextBuilder assembles the full interactive context: personal history
// from the memory tiers, optional ambient channel messages, and the
// memory-aware system prompt.
type ContextBuilder struct {
	cfg       config.ContextConfig
	manager   *memory.Manager
	prompts   *prompt.Builder
	history   platform.History
	extractor *memory.Extractor
	log       zerolog.Logger
}

func NewContextBuilder(cfg config.ContextConfig, manager *memory.Manager, prompts *prompt.Builder, history platform.History) *ContextBuilder {
	if cfg.HistoryDepthDM <= 0 {
		cfg.HistoryDepthDM = 10
	}
	if cfg.HistoryDepthMention <= 0 {
		cfg.HistoryDepthMention = 5
	}
	if cfg.HistoryDepthAmbient <= 0 {
		cfg.HistoryDepthAmbient = 3
	}
	if cfg.ChannelScanLimit <= 0 {
		cfg.ChannelScanLimit = 30
	}
	if cfg.ChannelScanKeep <= 0 {
		cfg.ChannelScanKeep = 8
	}
	if cfg.ChannelScanMaxAgeMin <= 0 {
		cfg.ChannelScanMaxAgeMin = 30
	}
	if cfg.MessageMaxLength <= 0 {
		cfg.MessageMaxLength = 150
	}
	return &ContextBuilder{
		cfg:       cfg,
		manager:   manager,
		prompts:   prompts,
		history:   history,
		extractor: memory.NewExtractor(manager.LongTerm()),
		log:       logger.For("context"),
	}
}

// BuildContext produces the context for one inbound message. Every tier
// degrades independently; this never fails outright.
func (c *ContextBuilder) BuildContext(ctx context.Context, msg platform.Message) AIContext {
	pc := prompt.Context{
		IsDM:        msg.IsDM(),
		IsMentioned: msg.MentionsBot,
		UserName:    msg.AuthorName,
	}

	mc := c.manager.BuildContext(ctx, msg.AuthorID, msg.ConversationID())
	systemPrompt := c.prompts.BuildSystemPrompt(pc, mc.LongTerm)

	personal := c.sliceHistory(mc.History, c.historyDepth(pc))
	channel := c.channelContext(ctx, msg, pc)

	// Ambient grounding comes first, the user's own dialogue after. This is
	// policy, not a chronological merge.
	combined := make([]memory.ConversationMessage, 0, len(channel)+len(personal))
	combined = append(combined, channel...)
	combined = append(combined, personal...)

	return AIContext{
		ConversationHistory: combined,
		SystemPrompt:        systemPrompt,
		TokenCount:          c.estimateTokens(systemPrompt, combined),
	}
}

func (c *ContextBuilder) historyDepth(pc prompt.Context) int {
	switch {
	case pc.IsDM:
		return c.cfg.HistoryDepthDM
	case pc.IsMentioned:
		return c.cfg.HistoryDepthMention
	default:
		return c.cfg.HistoryDepthAmbient
	}
}

func (c *ContextBuilder) sliceHistory(history []memory.ConversationMessage, depth int) []memory.ConversationMessage {
	if len(history) > depth {
		history = history[len(history)-depth:]
	}
	out := make([]memory.ConversationMessage, 0, len(history))
	for _, m := range history {
		out = append(out, memory.NewMessage(m.Role, prompt.CompressMessage(m.Text(), c.cfg.MessageMaxLength), m.Timestamp))
	}
	return out
}

// channelContext fetches a bounded window of recent channel messages for
// ambient grounding. Any fetch failure degrades to an empty window.
func (c *ContextBuilder) channelContext(ctx context.Context, msg platform.Message, pc prompt.Context) []memory.ConversationMessage {
	if c.history == nil || msg.IsDM() {
		return nil
	}
	if pc.IsMentioned && !c.cfg.ChannelScanOnMention {
		return nil
	}
	if !pc.IsMentioned && !c.cfg.ChannelScanAmbient {
		return nil
	}

	recent, err := c.history.RecentMessages(ctx, msg.ChannelID, c.cfg.ChannelScanLimit)
	if err != nil {
		c.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("channel scan failed, continuing without it")
		return nil
	}

	maxAge := time.Duration(c.cfg.ChannelScanMaxAgeMin) * time.Minute
	cutoff := time.Now().Add(-maxAge)

	kept := make([]platform.Message, 0, c.cfg.ChannelScanKeep)
	for _, m := range recent {
		if m.ID == msg.ID || m.IsBot {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" || m.CreatedAt.Before(cutoff) {
			continue
		}
		if c.isCommandNoise(content) {
			continue
		}
		kept = append(kept, m)
		if len(kept) == c.cfg.ChannelScanKeep {
			break
		}
	}

	// RecentMessages returns newest first; flip to chronological order.
	out := make([]memory.ConversationMessage, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		m := kept[i]
		line := fmt.Sprintf("[%s]: %s", m.AuthorName, prompt.CompressMessage(m.Content, c.cfg.MessageMaxLength))
		out = append(out, memory.NewMessage(memory.RoleUser, line, m.CreatedAt))
	}
	return out
}

func (c *ContextBuilder) isCommandNoise(content string) bool {
	for _, prefix := range c.cfg.CommandPrefixes {
		if prefix != "" && strings.HasPrefix(content, prefix) {
			return true
		}
	}
	return slashCommandRegex.MatchString(content)
}

// estimateTokens uses the ceil(len/4) character heuristic; close enough to
// drive truncation decisions upstream.
func (c *ContextBuilder) estimateTokens(systemPrompt string, history []memory.ConversationMessage) int {
	total := estimate(systemPrompt)
	for _, m := range history {
		total += estimate(m.Text())
	}
	return total
}

func estimate(text string) int {
	return (len(text) + 3) / 4
}

// SaveInteraction persists a completed exchange: both turns, aggregate
// stats, the profile touch, and an extraction pass over the user's text.
func (c *ContextBuilder) SaveInteraction(ctx context.Context, msg platform.Message, response string, tokenUsage int) error {
	conversationID := msg.ConversationID()

	if err := c.manager.AddUserMessage(ctx, msg.AuthorID, msg.Content, conversationID); err != nil {
		return fmt.Errorf("save user turn: %w", err)
	}
	if err := c.manager.AddModelMessage(ctx, msg.AuthorID, response, conversationID); err != nil {
		return fmt.Errorf("save model turn: %w", err)
	}

	if err := c.manager.LongTerm().UpdateStats(ctx, msg.AuthorID, 2, tokenUsage, conversationID); err != nil {
		c.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("stats update failed")
	}
	if err := c.manager.LongTerm().RecordSeen(ctx, msg.AuthorID, msg.AuthorName); err != nil {
		c.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("profile touch failed")
	}
	if err := c.extractor.Scan(ctx, msg.AuthorID, msg.Content); err != nil {
		c.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("extraction failed")
	}
	return nil
}

// Package channels connects the bot to Discord: inbound messages go onto
// the bus, replies come back off it.
package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/bus"
	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/platform"
)

const sendTimeout = 10 * time.Second

// Discord limits messages to 2000 characters; splitting at 1500 leaves room
// to extend a chunk rather than cut a code block in half.
const chunkLimit = 1500

type DiscordChannel struct {
	session *discordgo.Session
	bus     *bus.MessageBus
	botID   string
	log     zerolog.Logger

	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDiscordChannel(cfg config.DiscordConfig, b *bus.MessageBus) (*DiscordChannel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("discord token not configured")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &DiscordChannel{
		session: session,
		bus:     b,
		log:     logger.For("discord"),
	}, nil
}

// BotID is only valid after Start.
func (c *DiscordChannel) BotID() string { return c.botID }

// Directory exposes history and role lookups over the live session.
func (c *DiscordChannel) Directory() *platform.DiscordDirectory {
	return platform.NewDiscordDirectory(c.session, c.botID)
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	botUser, err := c.session.User("@me")
	if err != nil {
		_ = c.session.Close()
		return fmt.Errorf("get bot user: %w", err)
	}
	c.botID = botUser.ID

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	deliverCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.deliverOutbound(deliverCtx)

	c.log.Info().Str("username", botUser.Username).Str("user_id", botUser.ID).Msg("discord connected")
	return nil
}

func (c *DiscordChannel) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.botID {
		return
	}
	c.bus.PublishInbound(platform.FromDiscord(m.Message, c.botID))
}

func (c *DiscordChannel) deliverOutbound(ctx context.Context) {
	defer c.wg.Done()
	for {
		msg, ok := c.bus.ConsumeOutbound(ctx)
		if !ok {
			return
		}
		if err := c.Send(ctx, msg); err != nil {
			c.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("failed to deliver reply")
		}
	}
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.isRunning() {
		return fmt.Errorf("discord channel not running")
	}
	if msg.ChannelID == "" {
		return fmt.Errorf("channel ID is empty")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	_ = c.session.ChannelTyping(msg.ChannelID)

	for i, chunk := range splitMessage(msg.Content, chunkLimit) {
		replyTo := ""
		if i == 0 {
			replyTo = msg.ReplyToID
		}
		if err := c.sendChunk(ctx, msg.ChannelID, chunk, replyTo); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content, replyToID string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	send := &discordgo.MessageSend{Content: content}
	if replyToID != "" {
		send.Reference = &discordgo.MessageReference{MessageID: replyToID, ChannelID: channelID}
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSendComplex(channelID, send)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

// splitMessage breaks long content into chunks at natural boundaries. A
// chunk ending inside an unclosed ``` block is extended up to 500 extra
// characters to reach the closing fence, or re-split before the block opens.
func splitMessage(content string, limit int) []string {
	var chunks []string

	for len(content) > 0 {
		if len(content) <= limit {
			chunks = append(chunks, content)
			break
		}

		end := findLastNewline(content[:limit], 200)
		if end <= 0 {
			end = findLastSpace(content[:limit], 100)
		}
		if end <= 0 {
			end = limit
		}

		if openIdx := lastUnclosedFence(content[:end]); openIdx >= 0 {
			extended := limit + 500
			if len(content) <= extended {
				end = len(content)
			} else if closeIdx := nextClosingFence(content, end); closeIdx > 0 && closeIdx <= extended {
				end = closeIdx
			} else {
				end = findLastNewline(content[:openIdx], 200)
				if end <= 0 {
					end = openIdx
				}
			}
		}

		if end <= 0 {
			end = limit
		}

		chunks = append(chunks, content[:end])
		content = strings.TrimSpace(content[end:])
	}

	return chunks
}

// lastUnclosedFence returns the offset of the last ``` without a matching
// close, or -1 when every fence is paired.
func lastUnclosedFence(text string) int {
	count := 0
	lastOpen := -1
	for i := 0; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			if count%2 == 0 {
				lastOpen = i
			}
			count++
			i += 2
		}
	}
	if count%2 == 1 {
		return lastOpen
	}
	return -1
}

// nextClosingFence returns the offset just past the next ``` at or after
// start, or -1.
func nextClosingFence(text string, start int) int {
	for i := start; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			return i + 3
		}
	}
	return -1
}

func findLastNewline(s string, window int) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}

func findLastSpace(s string, window int) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			return i
		}
	}
	return -1
}

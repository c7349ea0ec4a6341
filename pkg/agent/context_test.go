package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/memory"
	"github.com/davigomz/kora/pkg/platform"
	"github.com/davigomz/kora/pkg/prompt"
)

type fakeHistory struct {
	messages []platform.Message
	err      error
}

func (f *fakeHistory) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func newTestBuilder(t *testing.T, history platform.History) (*ContextBuilder, *memory.Manager) {
	t.Helper()
	manager, err := memory.NewManager(memory.Config{
		DBPath:        filepath.Join(t.TempDir(), "memory.db"),
		ShortTermTTL:  time.Minute,
		SweepInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Destroy() })

	cfg := config.DefaultConfig().Context
	prompts := prompt.NewBuilder("Kora", cfg.PromptFactCount, cfg.PromptPrefCount, cfg.PromptRelationshipTop)
	return NewContextBuilder(cfg, manager, prompts, history), manager
}

func dmMessage(content string) platform.Message {
	return platform.Message{
		ID:         "m1",
		AuthorID:   "u1",
		AuthorName: "ana",
		ChannelID:  "c1",
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

func TestBuildContextDMDepth(t *testing.T) {
	builder, manager := newTestBuilder(t, nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := manager.AddUserMessage(ctx, "u1", fmt.Sprintf("mensaje-%d", i), ""); err != nil {
			t.Fatalf("add: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	aiCtx := builder.BuildContext(ctx, dmMessage("hola"))
	if len(aiCtx.ConversationHistory) != 10 {
		t.Fatalf("DM history depth should be 10, got %d", len(aiCtx.ConversationHistory))
	}
	// The newest messages are the ones kept.
	last := aiCtx.ConversationHistory[len(aiCtx.ConversationHistory)-1]
	if last.Text() != "mensaje-11" {
		t.Fatalf("newest message missing, got %q", last.Text())
	}
}

func TestBuildContextAmbientDepth(t *testing.T) {
	builder, manager := newTestBuilder(t, nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_ = manager.AddUserMessage(ctx, "u1", fmt.Sprintf("mensaje-%d", i), "g1")
		time.Sleep(2 * time.Millisecond)
	}

	msg := dmMessage("hola")
	msg.GuildID = "g1"

	aiCtx := builder.BuildContext(ctx, msg)
	if len(aiCtx.ConversationHistory) != 3 {
		t.Fatalf("ambient history depth should be 3, got %d", len(aiCtx.ConversationHistory))
	}
}

func TestBuildContextCompressesHistory(t *testing.T) {
	builder, manager := newTestBuilder(t, nil)
	ctx := context.Background()

	long := strings.Repeat("palabra ", 50)
	_ = manager.AddUserMessage(ctx, "u1", long, "")

	aiCtx := builder.BuildContext(ctx, dmMessage("hola"))
	if len(aiCtx.ConversationHistory) != 1 {
		t.Fatalf("history: %d", len(aiCtx.ConversationHistory))
	}
	text := aiCtx.ConversationHistory[0].Text()
	if len([]rune(text)) > 150 {
		t.Fatalf("message not compressed: %d runes", len([]rune(text)))
	}
	if !strings.HasSuffix(text, "...") {
		t.Fatalf("missing ellipsis: %q", text)
	}
}

func TestBuildContextChannelScan(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{messages: []platform.Message{
		// Newest first, as the platform returns them.
		{ID: "h1", AuthorName: "bea", Content: "última", CreatedAt: now.Add(-time.Minute)},
		{ID: "h2", AuthorName: "carl", Content: "!comando", CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "h3", AuthorName: "dana", Content: "/slash algo", CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "h4", AuthorName: "robo", IsBot: true, Content: "beep", CreatedAt: now.Add(-4 * time.Minute)},
		{ID: "h5", AuthorName: "eva", Content: "anterior", CreatedAt: now.Add(-5 * time.Minute)},
		{ID: "h6", AuthorName: "fede", Content: "viejísima", CreatedAt: now.Add(-2 * time.Hour)},
	}}

	builder, _ := newTestBuilder(t, history)

	msg := dmMessage("<@999> hola")
	msg.GuildID = "g1"
	msg.MentionsBot = true

	aiCtx := builder.BuildContext(context.Background(), msg)

	var lines []string
	for _, m := range aiCtx.ConversationHistory {
		lines = append(lines, m.Text())
	}
	joined := strings.Join(lines, "\n")

	if !strings.Contains(joined, "[eva]: anterior") || !strings.Contains(joined, "[bea]: última") {
		t.Fatalf("qualifying channel messages missing:\n%s", joined)
	}
	for _, banned := range []string{"!comando", "/slash", "beep", "viejísima"} {
		if strings.Contains(joined, banned) {
			t.Fatalf("noise %q leaked into context:\n%s", banned, joined)
		}
	}
	// Ascending by creation time: eva's older message before bea's newer one.
	evaIdx := strings.Index(joined, "[eva]")
	beaIdx := strings.Index(joined, "[bea]")
	if evaIdx > beaIdx {
		t.Fatalf("channel context not chronological:\n%s", joined)
	}
}

func TestBuildContextChannelScanFailureDegrades(t *testing.T) {
	history := &fakeHistory{err: errors.New("discord down")}
	builder, manager := newTestBuilder(t, history)
	ctx := context.Background()

	_ = manager.AddUserMessage(ctx, "u1", "hola antes", "g1")

	msg := dmMessage("<@999> hola")
	msg.GuildID = "g1"
	msg.MentionsBot = true

	aiCtx := builder.BuildContext(ctx, msg)
	if aiCtx.SystemPrompt == "" {
		t.Fatal("system prompt should survive a channel scan failure")
	}
	if len(aiCtx.ConversationHistory) != 1 {
		t.Fatalf("personal history should survive, got %d messages", len(aiCtx.ConversationHistory))
	}
}

func TestBuildContextSkipsScanInDM(t *testing.T) {
	history := &fakeHistory{err: errors.New("must not be called")}
	builder, _ := newTestBuilder(t, history)

	aiCtx := builder.BuildContext(context.Background(), dmMessage("hola"))
	if len(aiCtx.ConversationHistory) != 0 {
		t.Fatalf("unexpected history: %d", len(aiCtx.ConversationHistory))
	}
}

func TestTokenEstimate(t *testing.T) {
	builder, _ := newTestBuilder(t, nil)

	aiCtx := builder.BuildContext(context.Background(), dmMessage("hola"))
	want := (len(aiCtx.SystemPrompt) + 3) / 4
	if aiCtx.TokenCount != want {
		t.Fatalf("token estimate = %d, want %d", aiCtx.TokenCount, want)
	}
}

func TestSaveInteraction(t *testing.T) {
	builder, manager := newTestBuilder(t, nil)
	ctx := context.Background()

	msg := dmMessage("me encanta el ajedrez")
	if err := builder.SaveInteraction(ctx, msg, "¡qué bueno!", 42); err != nil {
		t.Fatalf("save: %v", err)
	}

	session, err := manager.Sessions().GetSession(ctx, "u1", "dm")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session == nil || len(session.Messages) != 2 {
		t.Fatalf("both turns should be persisted: %+v", session)
	}
	if session.Messages[0].Role != memory.RoleUser || session.Messages[1].Role != memory.RoleModel {
		t.Fatalf("wrong roles: %+v", session.Messages)
	}

	data, err := manager.LongTerm().GetUserMemory(ctx, "u1")
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if data == nil {
		t.Fatal("stats and profile should exist")
	}
	if data.Stats.TokenUsage != 42 {
		t.Fatalf("token usage = %d", data.Stats.TokenUsage)
	}
	if len(data.Preferences) == 0 {
		t.Fatal("extraction should have captured the preference")
	}
}

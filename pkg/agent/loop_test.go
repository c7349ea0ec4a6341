package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davigomz/kora/pkg/bus"
	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/filter"
	"github.com/davigomz/kora/pkg/memory"
	"github.com/davigomz/kora/pkg/providers"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, systemPrompt string, history []memory.ConversationMessage, userMessage string) (*providers.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &providers.Response{
		Content:    s.reply,
		TokenUsage: providers.TokenUsage{Total: 7},
	}, nil
}

func newTestResponder(t *testing.T, p providers.Provider, ambientReplies bool) (*bus.MessageBus, *Responder) {
	t.Helper()
	builder, _ := newTestBuilder(t, nil)
	mb := bus.NewMessageBus()
	t.Cleanup(mb.Close)

	f := filter.New(config.FilterConfig{}, nil, "999")
	r := NewResponder(mb, f, builder, p, ambientReplies)
	return mb, r
}

func consumeReply(t *testing.T, mb *bus.MessageBus) (bus.OutboundMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return mb.ConsumeOutbound(ctx)
}

func TestResponderRepliesToDM(t *testing.T) {
	mb, r := newTestResponder(t, &stubProvider{reply: "¡hola ana!"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	mb.PublishInbound(dmMessage("hola kora"))

	reply, ok := consumeReply(t, mb)
	if !ok {
		t.Fatal("expected a reply")
	}
	if reply.Content != "¡hola ana!" {
		t.Fatalf("reply = %q", reply.Content)
	}
	if reply.ChannelID != "c1" || reply.ReplyToID != "m1" {
		t.Fatalf("reply addressing: %+v", reply)
	}
}

func TestResponderProviderFailureFallsBack(t *testing.T) {
	mb, r := newTestResponder(t, &stubProvider{err: errors.New("provider down")}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	mb.PublishInbound(dmMessage("hola"))

	reply, ok := consumeReply(t, mb)
	if !ok {
		t.Fatal("expected a fallback reply")
	}
	if reply.Content != providerFallbackReply {
		t.Fatalf("reply = %q", reply.Content)
	}
}

func TestResponderDropsBlockedMessages(t *testing.T) {
	mb, r := newTestResponder(t, &stubProvider{reply: "nunca"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	// Single-character content fails the admission filter; blocked messages
	// get no reply at all.
	mb.PublishInbound(dmMessage("a"))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer waitCancel()
	if _, ok := mb.ConsumeOutbound(waitCtx); ok {
		t.Fatal("blocked message must not produce a reply")
	}
}

func TestResponderIgnoresAmbientWhenDisabled(t *testing.T) {
	mb, r := newTestResponder(t, &stubProvider{reply: "nunca"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	msg := dmMessage("charla de canal")
	msg.GuildID = "g1"
	mb.PublishInbound(msg)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer waitCancel()
	if _, ok := mb.ConsumeOutbound(waitCtx); ok {
		t.Fatal("ambient message must not be answered when disabled")
	}
}

func TestResponderAnswersAmbientWhenEnabled(t *testing.T) {
	mb, r := newTestResponder(t, &stubProvider{reply: "me sumo"}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	msg := dmMessage("charla de canal")
	msg.GuildID = "g1"
	mb.PublishInbound(msg)

	reply, ok := consumeReply(t, mb)
	if !ok {
		t.Fatal("expected an ambient reply")
	}
	if reply.Content != "me sumo" {
		t.Fatalf("reply = %q", reply.Content)
	}
}

func TestResponderStopIdempotent(t *testing.T) {
	_, r := newTestResponder(t, &stubProvider{reply: "ok"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Stop()
	r.Stop()
}

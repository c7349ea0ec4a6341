package bus

import (
	"context"
	"testing"
	"time"

	"github.com/davigomz/kora/pkg/platform"
)

func TestPublishConsumeInbound(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	mb.PublishInbound(platform.Message{ID: "m1", Content: "hola"})

	msg, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected message")
	}
	if msg.ID != "m1" {
		t.Fatalf("got %q", msg.ID)
	}
}

func TestPublishConsumeOutbound(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	mb.PublishOutbound(OutboundMessage{ChannelID: "c1", Content: "respuesta", ReplyToID: "m1"})

	msg, ok := mb.ConsumeOutbound(context.Background())
	if !ok {
		t.Fatal("expected message")
	}
	if msg.ChannelID != "c1" || msg.ReplyToID != "m1" {
		t.Fatalf("got %+v", msg)
	}
}

func TestConsumeRespectsContext(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("expected no message on cancelled context")
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	// Must not panic on the closed channel.
	mb.PublishInbound(platform.Message{ID: "m1"})
	mb.PublishOutbound(OutboundMessage{ChannelID: "c1"})

	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatal("closed bus should not deliver")
	}
}

func TestCloseIdempotent(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	mb.Close()
}

func TestOverflowDropsAndCounts(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	// Queue capacity is 100; two more than that must overflow.
	for i := 0; i < 102; i++ {
		mb.PublishInbound(platform.Message{ID: "m"})
	}

	if got := mb.DroppedInbound(); got != 2 {
		t.Fatalf("dropped inbound = %d, want 2", got)
	}
}

package agent

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/davigomz/kora/pkg/bus"
	"github.com/davigomz/kora/pkg/filter"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/platform"
	"github.com/davigomz/kora/pkg/providers"
)

// Spanish on purpose; these are user-visible.
const (
	providerFallbackReply = "Perdona, ahora mismo no consigo pensar con claridad. Inténtalo de nuevo en un momento."
	genericFailureReply   = "Uy, algo salió mal."
)

// Responder consumes admitted messages, builds context, calls the provider
// and publishes the reply. One goroutine per Start call.
type Responder struct {
	bus            *bus.MessageBus
	filter         *filter.ContextFilter
	builder        *ContextBuilder
	provider       providers.Provider
	ambientReplies bool
	log            zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewResponder(b *bus.MessageBus, f *filter.ContextFilter, cb *ContextBuilder, p providers.Provider, ambientReplies bool) *Responder {
	return &Responder{
		bus:            b,
		filter:         f,
		builder:        cb,
		provider:       p,
		ambientReplies: ambientReplies,
		log:            logger.For("responder"),
	}
}

func (r *Responder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)
}

func (r *Responder) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	})
}

func (r *Responder) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		msg, ok := r.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		r.handle(ctx, msg)
	}
}

// handle is the outermost per-message boundary: anything unexpected that
// escapes the pipeline becomes the generic failure reply, never a crash.
func (r *Responder) handle(ctx context.Context, msg platform.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("user_id", msg.AuthorID).Msg("message handler panicked")
			r.bus.PublishOutbound(bus.OutboundMessage{
				ChannelID: msg.ChannelID,
				Content:   genericFailureReply,
				ReplyToID: msg.ID,
			})
		}
	}()

	if !r.wantsReply(msg) {
		return
	}

	decision := r.filter.Filter(ctx, msg)
	if !decision.Allowed() {
		r.log.Debug().
			Str("user_id", msg.AuthorID).
			Str("stage", decision.Level).
			Str("reason", decision.Reason).
			Msg("message blocked")
		return
	}

	aiCtx := r.builder.BuildContext(ctx, msg)

	reply := providerFallbackReply
	tokens := 0
	resp, err := r.provider.Generate(ctx, aiCtx.SystemPrompt, aiCtx.ConversationHistory, msg.Content)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("provider call failed, using fallback reply")
	} else {
		reply = resp.Content
		tokens = resp.TokenUsage.Total
	}

	if err := r.builder.SaveInteraction(ctx, msg, reply, tokens); err != nil {
		r.log.Warn().Err(err).Str("user_id", msg.AuthorID).Msg("failed to persist interaction")
	}

	r.bus.PublishOutbound(bus.OutboundMessage{
		ChannelID: msg.ChannelID,
		Content:   reply,
		ReplyToID: msg.ID,
	})
}

// wantsReply gates which admitted messages get an answer: DMs and mentions
// always, ambient channel chatter only when enabled.
func (r *Responder) wantsReply(msg platform.Message) bool {
	if msg.IsDM() || msg.MentionsBot {
		return true
	}
	return r.ambientReplies
}

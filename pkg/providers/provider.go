// Package providers holds the outbound LLM call. One implementation speaks
// the OpenAI-compatible chat completions protocol, which covers OpenAI,
// OpenRouter and most self-hosted gateways.
package providers

import (
	"context"
	"time"

	"github.com/davigomz/kora/pkg/memory"
)

// TokenUsage mirrors the provider's reported accounting.
type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// Response is one completed generation.
type Response struct {
	Content        string
	TokenUsage     TokenUsage
	ProcessingTime time.Duration
	Cached         bool
}

// Provider generates one reply from the assembled context. Implementations
// do not retry; the caller decides what a failure degrades to.
type Provider interface {
	Generate(ctx context.Context, systemPrompt string, history []memory.ConversationMessage, userMessage string) (*Response, error)
	Name() string
}

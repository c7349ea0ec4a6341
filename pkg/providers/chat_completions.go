package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davigomz/kora/pkg/memory"
)

const defaultHTTPTimeout = 120 * time.Second

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionsProvider speaks the OpenAI-compatible /chat/completions
// protocol against any configured base URL.
type ChatCompletionsProvider struct {
	apiBase    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewChatCompletionsProvider(apiBase, apiKey, model string) (*ChatCompletionsProvider, error) {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("provider API base not configured")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("provider API key not configured")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("provider model not configured")
	}
	return &ChatCompletionsProvider{
		apiBase:    apiBase,
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

func (p *ChatCompletionsProvider) Name() string { return "chat_completions" }

func (p *ChatCompletionsProvider) Generate(ctx context.Context, systemPrompt string, history []memory.ConversationMessage, userMessage string) (*Response, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range history {
		role := "user"
		if m.Role == memory.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Text()})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userMessage})

	body, err := json.Marshal(map[string]interface{}{
		"model":    p.model,
		"messages": messages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("provider request failed: status=%d error=%s", resp.StatusCode, extractAPIError(raw))
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage TokenUsage `json:"usage"`
	}
	if err := json.Unmarshal(raw, &apiResponse); err != nil {
		return nil, fmt.Errorf("parse provider response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	return &Response{
		Content:        strings.TrimSpace(apiResponse.Choices[0].Message.Content),
		TokenUsage:     apiResponse.Usage,
		ProcessingTime: time.Since(start),
	}, nil
}

func extractAPIError(body []byte) string {
	var apiError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Message != "" {
		return apiError.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

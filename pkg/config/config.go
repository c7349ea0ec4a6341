package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// IDList is a []string that also accepts JSON numbers, so channel and role
// lists can contain both "123" and 123.
type IDList []string

func (f *IDList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Discord  DiscordConfig  `json:"discord"`
	Provider ProviderConfig `json:"provider"`
	Memory   MemoryConfig   `json:"memory"`
	Filter   FilterConfig   `json:"filter"`
	Context  ContextConfig  `json:"context"`
}

type BotConfig struct {
	Name           string `json:"name" env:"KORA_BOT_NAME"`
	Workspace      string `json:"workspace" env:"KORA_BOT_WORKSPACE"`
	Debug          bool   `json:"debug" env:"KORA_BOT_DEBUG"`
	AmbientReplies bool   `json:"ambient_replies" env:"KORA_BOT_AMBIENT_REPLIES"`
}

type DiscordConfig struct {
	Token string `json:"token" env:"KORA_DISCORD_TOKEN"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"KORA_PROVIDER_API_KEY"`
	APIBase string `json:"api_base" env:"KORA_PROVIDER_API_BASE"`
	Model   string `json:"model" env:"KORA_PROVIDER_MODEL"`
}

type MemoryConfig struct {
	ShortTermCap         int `json:"short_term_cap" env:"KORA_MEMORY_SHORT_TERM_CAP"`
	ShortTermTTLMinutes  int `json:"short_term_ttl_minutes" env:"KORA_MEMORY_SHORT_TERM_TTL_MINUTES"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" env:"KORA_MEMORY_SWEEP_INTERVAL_MINUTES"`
	SessionCap           int `json:"session_cap" env:"KORA_MEMORY_SESSION_CAP"`
	SessionWindowHours   int `json:"session_window_hours" env:"KORA_MEMORY_SESSION_WINDOW_HOURS"`
	LongTermCategoryCap  int `json:"long_term_category_cap" env:"KORA_MEMORY_LONG_TERM_CATEGORY_CAP"`
	PromptFactCount      int `json:"prompt_fact_count" env:"KORA_MEMORY_PROMPT_FACT_COUNT"`
	PromptPrefCount      int `json:"prompt_pref_count" env:"KORA_MEMORY_PROMPT_PREF_COUNT"`
}

type FilterConfig struct {
	MinContentLength int    `json:"min_content_length" env:"KORA_FILTER_MIN_CONTENT_LENGTH"`
	MaxContentLength int    `json:"max_content_length" env:"KORA_FILTER_MAX_CONTENT_LENGTH"`
	BlockedChannels  IDList `json:"blocked_channels"`
	AllowedChannels  IDList `json:"allowed_channels"`
	AllowedRoles     IDList `json:"allowed_roles"`
}

type ContextConfig struct {
	HistoryDepthDM        int      `json:"history_depth_dm" env:"KORA_CONTEXT_HISTORY_DEPTH_DM"`
	HistoryDepthMention   int      `json:"history_depth_mention" env:"KORA_CONTEXT_HISTORY_DEPTH_MENTION"`
	HistoryDepthAmbient   int      `json:"history_depth_ambient" env:"KORA_CONTEXT_HISTORY_DEPTH_AMBIENT"`
	ChannelScanOnMention  bool     `json:"channel_scan_on_mention" env:"KORA_CONTEXT_CHANNEL_SCAN_ON_MENTION"`
	ChannelScanAmbient    bool     `json:"channel_scan_ambient" env:"KORA_CONTEXT_CHANNEL_SCAN_AMBIENT"`
	ChannelScanLimit      int      `json:"channel_scan_limit" env:"KORA_CONTEXT_CHANNEL_SCAN_LIMIT"`
	ChannelScanKeep       int      `json:"channel_scan_keep" env:"KORA_CONTEXT_CHANNEL_SCAN_KEEP"`
	ChannelScanMaxAgeMin  int      `json:"channel_scan_max_age_minutes" env:"KORA_CONTEXT_CHANNEL_SCAN_MAX_AGE_MINUTES"`
	MessageMaxLength      int      `json:"message_max_length" env:"KORA_CONTEXT_MESSAGE_MAX_LENGTH"`
	CommandPrefixes       []string `json:"command_prefixes"`
	PromptFactCount       int      `json:"prompt_fact_count" env:"KORA_CONTEXT_PROMPT_FACT_COUNT"`
	PromptPrefCount       int      `json:"prompt_pref_count" env:"KORA_CONTEXT_PROMPT_PREF_COUNT"`
	PromptRelationshipTop int      `json:"prompt_relationship_top" env:"KORA_CONTEXT_PROMPT_RELATIONSHIP_TOP"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:      "kora",
			Workspace: "~/.kora/workspace",
		},
		Discord: DiscordConfig{},
		Provider: ProviderConfig{
			APIBase: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-5.2",
		},
		Memory: MemoryConfig{
			ShortTermCap:         5,
			ShortTermTTLMinutes:  15,
			SweepIntervalMinutes: 5,
			SessionCap:           100,
			SessionWindowHours:   24,
			LongTermCategoryCap:  50,
			PromptFactCount:      3,
			PromptPrefCount:      3,
		},
		Filter: FilterConfig{
			MinContentLength: 2,
			MaxContentLength: 2000,
			BlockedChannels:  IDList{},
			AllowedChannels:  IDList{},
			AllowedRoles:     IDList{},
		},
		Context: ContextConfig{
			HistoryDepthDM:        10,
			HistoryDepthMention:   5,
			HistoryDepthAmbient:   3,
			ChannelScanOnMention:  true,
			ChannelScanAmbient:    false,
			ChannelScanLimit:      30,
			ChannelScanKeep:       8,
			ChannelScanMaxAgeMin:  30,
			MessageMaxLength:      150,
			CommandPrefixes:       []string{"!", ".", "$", "?"},
			PromptFactCount:       5,
			PromptPrefCount:       5,
			PromptRelationshipTop: 3,
		},
	}
}

// LoadConfig reads the JSON config at path and overlays environment variables.
// A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := env.Parse(cfg); envErr != nil {
				return nil, envErr
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// WorkspacePath returns the bot workspace with ~ expanded.
func (c *Config) WorkspacePath() string {
	return expandHome(c.Bot.Workspace)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

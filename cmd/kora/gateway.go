package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/davigomz/kora/pkg/agent"
	"github.com/davigomz/kora/pkg/bus"
	"github.com/davigomz/kora/pkg/channels"
	"github.com/davigomz/kora/pkg/config"
	"github.com/davigomz/kora/pkg/filter"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/memory"
	"github.com/davigomz/kora/pkg/prompt"
	"github.com/davigomz/kora/pkg/providers"
)

func memoryDBPath(cfg *config.Config) string {
	return filepath.Join(cfg.WorkspacePath(), "state", "memory.db")
}

func buildMemoryManager(cfg *config.Config) (*memory.Manager, error) {
	return memory.NewManager(memory.Config{
		DBPath:        memoryDBPath(cfg),
		ShortTermCap:  cfg.Memory.ShortTermCap,
		ShortTermTTL:  time.Duration(cfg.Memory.ShortTermTTLMinutes) * time.Minute,
		SweepInterval: time.Duration(cfg.Memory.SweepIntervalMinutes) * time.Minute,
		SessionCap:    cfg.Memory.SessionCap,
		SessionWindow: time.Duration(cfg.Memory.SessionWindowHours) * time.Hour,
		CategoryCap:   cfg.Memory.LongTermCategoryCap,
		PromptFactTop: cfg.Memory.PromptFactCount,
		PromptPrefTop: cfg.Memory.PromptPrefCount,
		PersonaName:   cfg.Bot.Name,
	})
}

func buildProvider(cfg *config.Config) (providers.Provider, error) {
	return providers.NewChatCompletionsProvider(cfg.Provider.APIBase, cfg.Provider.APIKey, cfg.Provider.Model)
}

func validateRuntimeConfig(cfg *config.Config, requireDiscord bool) error {
	configPath := getConfigPath()
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return fmt.Errorf("provider.api_key is required in %s or KORA_PROVIDER_API_KEY", configPath)
	}
	if requireDiscord && strings.TrimSpace(cfg.Discord.Token) == "" {
		return fmt.Errorf("discord.token is required in %s or KORA_DISCORD_TOKEN", configPath)
	}
	return nil
}

func runGateway(debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetDebug(debug || cfg.Bot.Debug)
	if err := validateRuntimeConfig(cfg, true); err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	manager, err := buildMemoryManager(cfg)
	if err != nil {
		return fmt.Errorf("init memory: %w", err)
	}
	defer manager.Destroy()

	msgBus := bus.NewMessageBus()

	discord, err := channels.NewDiscordChannel(cfg.Discord, msgBus)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := discord.Start(ctx); err != nil {
		return err
	}

	directory := discord.Directory()
	prompts := prompt.NewBuilder(cfg.Bot.Name, cfg.Context.PromptFactCount, cfg.Context.PromptPrefCount, cfg.Context.PromptRelationshipTop)
	builder := agent.NewContextBuilder(cfg.Context, manager, prompts, directory)
	admission := filter.New(cfg.Filter, directory, discord.BotID())

	responder := agent.NewResponder(msgBus, admission, builder, provider, cfg.Bot.AmbientReplies)
	responder.Start(ctx)

	fmt.Printf("✓ %s gateway started (Ctrl+C to stop)\n", appName)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	if err := discord.Stop(); err != nil {
		fmt.Printf("Error stopping discord: %v\n", err)
	}
	responder.Stop()
	msgBus.Close()
	fmt.Println("✓ Gateway stopped")
	return nil
}

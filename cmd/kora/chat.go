package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/davigomz/kora/pkg/agent"
	"github.com/davigomz/kora/pkg/logger"
	"github.com/davigomz/kora/pkg/platform"
	"github.com/davigomz/kora/pkg/prompt"
)

const chatChannelID = "cli"

// runChat is a local REPL over the same memory and prompt pipeline the
// gateway uses, minus Discord.
func runChat(debug bool, userID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetDebug(debug || cfg.Bot.Debug)
	if err := validateRuntimeConfig(cfg, false); err != nil {
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

	prompts := prompt.NewBuilder(cfg.Bot.Name, cfg.Context.PromptFactCount, cfg.Context.PromptPrefCount, cfg.Context.PromptRelationshipTop)
	builder := agent.NewContextBuilder(cfg.Context, manager, prompts, nil)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s You: ", appName),
		HistoryFile:     filepath.Join(os.TempDir(), ".kora_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s interactive chat (exit, /clear, /clear-all)\n\n", appName)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\n¡Hasta luego!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		ctx := context.Background()

		switch input {
		case "exit", "quit":
			fmt.Println("¡Hasta luego!")
			return nil
		case "/clear":
			if err := manager.ClearUserMemory(ctx, userID, "", false); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Conversación olvidada (la memoria a largo plazo se conserva).")
			}
			continue
		case "/clear-all":
			if err := manager.ClearUserMemory(ctx, userID, "", true); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Memoria borrada por completo.")
			}
			continue
		}

		msg := platform.Message{
			AuthorID:   userID,
			AuthorName: userID,
			ChannelID:  chatChannelID,
			Content:    input,
			CreatedAt:  time.Now(),
		}

		aiCtx := builder.BuildContext(ctx, msg)
		resp, err := provider.Generate(ctx, aiCtx.SystemPrompt, aiCtx.ConversationHistory, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if err := builder.SaveInteraction(ctx, msg, resp.Content, resp.TokenUsage.Total); err != nil {
			fmt.Printf("Error saving interaction: %v\n", err)
		}

		fmt.Printf("\n%s %s\n\n", appName, resp.Content)
	}
}

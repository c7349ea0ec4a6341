package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davigomz/kora/pkg/config"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "kora",
		Short: "Spanish-speaking Discord companion with layered conversational memory",
		Long: strings.TrimSpace(`kora is a Discord companion bot that remembers who it talks to.

It keeps a short-term recency cache, a durable per-conversation session log,
and a long-term profile of facts, preferences, and relationships per user.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newRunCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newOnboardCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newRunCommand() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Discord gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newChatCommand() *cobra.Command {
	var debug bool
	var userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with kora locally in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(debug, userID)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "User id for the local session")
	return cmd
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Initialize ~/.kora config and workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and runtime readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkspacePath(), 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your provider API key to", configPath)
	fmt.Println("  2. (Gateway mode) Add your Discord bot token to discord.token")
	fmt.Println("  3. Chat locally: kora chat")
	fmt.Println("  4. Run the gateway: kora run")
	fmt.Println("  5. Check readiness: kora status")
	return nil
}

func showStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n\n", formatVersion())

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗")
	}

	workspace := cfg.WorkspacePath()
	if _, err := os.Stat(workspace); err == nil {
		fmt.Println("Workspace:", workspace, "✓")
	} else {
		fmt.Println("Workspace:", workspace, "✗")
	}
	memoryDB := memoryDBPath(cfg)
	if _, err := os.Stat(memoryDB); err == nil {
		fmt.Println("Memory DB:", memoryDB, "✓")
	} else {
		fmt.Println("Memory DB:", memoryDB, "not initialized")
	}

	status := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "not set"
	}
	apiReady := strings.TrimSpace(cfg.Provider.APIKey) != ""
	discordReady := strings.TrimSpace(cfg.Discord.Token) != ""

	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	fmt.Println("Provider API key:", status(apiReady))
	fmt.Println("Discord token:", status(discordReady))
	fmt.Println("Chat ready:", status(apiReady))
	fmt.Println("Gateway ready:", status(apiReady && discordReady))
	return nil
}

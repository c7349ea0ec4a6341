package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/davigomz/kora/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

const appName = "kora"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	fmt.Printf("  Go: %s\n", runtime.Version())
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kora", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

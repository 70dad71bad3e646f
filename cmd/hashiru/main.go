// Package main provides the CLI entry point for HASHIRU, the hierarchical
// agent orchestrator and tool dispatcher.
//
// HASHIRU decomposes a user request through a manager model which, at
// each turn, answers directly or issues function calls that create or
// invoke sub-agents bound to local or cloud LLM backends, create or invoke
// Python-tool-equivalent Go subprocess tools, or manage persistent
// memories — all under a two-dimensional (resource, expense) budget.
//
// # Basic Usage
//
// Start an interactive manager session:
//
//	hashiru chat --config hashiru.yaml
//
// Inspect the current budget:
//
//	hashiru budget
//
// List loaded tools or registered agents:
//
//	hashiru tools list
//	hashiru agents list
//
// # Environment Variables
//
//   - HASHIRU_CONFIG: path to the YAML configuration file (default: hashiru.yaml)
//   - ANTHROPIC_API_KEY / GEMINI_KEY / GROQ_API_KEY: backend credentials
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the command tree. Kept separate from main so
// tests can exercise it without touching os.Exit.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hashiru",
		Short:        "HASHIRU - hierarchical agent orchestrator and tool dispatcher",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to YAML configuration file")

	root.AddCommand(
		buildChatCmd(),
		buildBudgetCmd(),
		buildToolsCmd(),
		buildAgentsCmd(),
		buildMemoryCmd(),
		buildModesCmd(),
	)
	return root
}

// defaultConfigPath resolves HASHIRU_CONFIG, falling back to hashiru.yaml
// in the working directory.
func defaultConfigPath() string {
	if p := os.Getenv("HASHIRU_CONFIG"); p != "" {
		return p
	}
	return "hashiru.yaml"
}

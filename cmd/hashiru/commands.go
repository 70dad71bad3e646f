// commands.go contains all cobra command definitions and their flag
// configurations. Each command builder function wires a subcommand to a
// small run function that loads config.Config, builds an *app, and drives
// the requested component. Grounded on the teacher's cmd/nexus/commands.go
// layout (one builder per command, flags bound to locals captured by the
// RunE closure).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kunpai/hashiru/internal/config"
	"github.com/kunpai/hashiru/pkg/models"
)

// loadApp loads configPath and wires a fresh *app, the shared setup every
// subcommand needs before doing its own work.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return newApp(cfg)
}

// =============================================================================
// Chat
// =============================================================================

func buildChatCmd() *cobra.Command {
	var watch bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive manager session on stdin/stdout",
		Long: `Start an interactive manager-loop session.

Each line typed at the prompt is sent to the manager model as a user turn.
The manager may respond with text, dispatch tool/agent function calls, or
both; HASHIRU prints every assistant message, thinking bubble, and
function-response it produces along the way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), watch, metricsAddr)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "hot-reload user-authored tools as their manifest files change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus /metrics on this address (e.g. :9090)")
	return cmd
}

func runChat(ctx context.Context, watch bool, metricsAddr string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.buildOrchestrator(); err != nil {
		return fmt.Errorf("build chat backend: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		if err := a.tools.StartWatching(ctx); err != nil {
			a.logger.Warn("tool hot-reload watcher failed to start", "error", err)
		} else {
			defer a.tools.StopWatching()
		}
	}

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Warn("metrics server stopped", "error", err)
			}
		}()
		go reportBudgetMetrics(ctx, a)
		defer srv.Close()
	}

	conv := &models.Conversation{}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stdout, "hashiru> ")

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Fprint(os.Stdout, "> ")
			continue
		}
		before := len(conv.Messages)
		if err := a.orchestrator.Turn(ctx, conv, line); err != nil {
			fmt.Fprintf(os.Stdout, "[error] %v\n", err)
		}
		printNewMessages(conv, before)
		fmt.Fprint(os.Stdout, "> ")
	}
	return scanner.Err()
}

// reportBudgetMetrics polls the budget controller and republishes it as
// Prometheus gauges until ctx is cancelled. The controller itself has no
// change notification, so a short poll is the simplest way to keep
// /metrics current without threading a callback through every Reserve
// call site.
func reportBudgetMetrics(ctx context.Context, a *app) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := a.budget.Snapshot()
			a.metrics.RecordBudget(snap.UsedResource, snap.TotalResource, snap.UsedExpense, snap.TotalExpense)
		}
	}
}

func printNewMessages(conv *models.Conversation, from int) {
	for _, m := range conv.Messages[from:] {
		switch m.Role {
		case models.RoleAssistant:
			if m.Metadata != nil {
				fmt.Fprintf(os.Stdout, "[%s:%s] %s\n", m.Metadata.Title, m.Metadata.Status, m.Content)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s\n", m.Content)
		case models.RoleTool:
			for _, r := range m.FunctionResponses {
				fmt.Fprintf(os.Stdout, "[tool %s] %s: %s\n", r.Name, r.Result.Status, r.Result.Message)
			}
		}
	}
}

// =============================================================================
// Budget
// =============================================================================

func buildBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show the current resource and expense budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			snap := a.budget.Snapshot()
			fmt.Printf("resource: %.2f / %.2f (enabled=%v)\n", snap.UsedResource, snap.TotalResource, snap.ResourceOn)
			fmt.Printf("expense:  %.4f / %.4f (enabled=%v)\n", snap.UsedExpense, snap.TotalExpense, snap.ExpenseOn)
			return nil
		},
	}
}

// =============================================================================
// Tools
// =============================================================================

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tools", Short: "Inspect the tool registry"}
	cmd.AddCommand(buildToolsListCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every loaded tool and its declared costs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			for _, d := range a.tools.List() {
				fmt.Printf("%-24s user=%-5v create(r=%.1f,e=%.2f) invoke(r=%.1f,e=%.2f)  %s\n",
					d.Manifest.Name, d.UserAuthored,
					d.Manifest.Costs.CreateResource, d.Manifest.Costs.CreateExpense,
					d.Manifest.Costs.InvokeResource, d.Manifest.Costs.InvokeExpense,
					d.Manifest.Description)
			}
			return nil
		},
	}
}

// =============================================================================
// Agents
// =============================================================================

func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "Manage registered sub-agents"}
	cmd.AddCommand(buildAgentsListCmd(), buildAgentsCreateCmd(), buildAgentsAskCmd(), buildAgentsDeleteCmd())
	return cmd
}

func buildAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered sub-agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			descs, err := a.agents.List()
			if err != nil {
				return err
			}
			for _, d := range descs {
				fmt.Printf("%-16s %-12s %s\n", d.Name, d.BackendType, d.BaseModel)
			}
			return nil
		},
	}
}

func buildAgentsCreateCmd() *cobra.Command {
	var baseModel, systemPrompt string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a named sub-agent bound to a base model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return a.agents.Create(cmd.Context(), args[0], baseModel, systemPrompt)
		},
	}
	cmd.Flags().StringVar(&baseModel, "base-model", "", "base model identifier (e.g. gemini-2.5-flash, llama3.2, groq/llama-3.3-70b-versatile)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "system prompt bound to the agent")
	cmd.MarkFlagRequired("base-model")
	return cmd
}

func buildAgentsAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask NAME PROMPT",
		Short: "Send a one-shot prompt to a registered agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			reply, err := a.agents.Ask(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
}

func buildAgentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a registered agent and refund its create-time resource cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return a.agents.Delete(args[0])
		},
	}
}

// =============================================================================
// Memory
// =============================================================================

func buildMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "memory", Short: "Inspect and edit persisted memories"}
	cmd.AddCommand(buildMemoryListCmd(), buildMemoryAddCmd(), buildMemoryDeleteCmd())
	return cmd
}

func buildMemoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every persisted memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			records, err := a.memory.List()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
}

func buildMemoryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add KEY TEXT",
		Short: "Add a memory under a unique key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return a.memory.Add(models.MemoryRecord{Key: args[0], Memory: args[1]})
		},
	}
}

func buildMemoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a memory by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return a.memory.Delete(args[0])
		},
	}
}

// =============================================================================
// Modes
// =============================================================================

func buildModesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "modes", Short: "Show or set ModeSet feature flags"}
	cmd.AddCommand(buildModesShowCmd(), buildModesSetCmd())
	return cmd
}

func buildModesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current ModeSet snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(a.modeSet.Snapshot())
		},
	}
}

func buildModesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME true|false",
		Short: "Toggle a single mode flag (e.g. ENABLE_TOOL_CREATION, ENABLE_CLOUD_AGENTS)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			value := args[1] == "true"
			a.modeSet.SetOne(args[0], value)
			return nil
		},
	}
}


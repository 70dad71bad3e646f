package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kunpai/hashiru/internal/agentregistry"
	"github.com/kunpai/hashiru/internal/agentregistry/backend"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/builtins"
	"github.com/kunpai/hashiru/internal/chatbackend"
	anthropicbackend "github.com/kunpai/hashiru/internal/chatbackend/anthropic"
	openaibackend "github.com/kunpai/hashiru/internal/chatbackend/openai"
	"github.com/kunpai/hashiru/internal/config"
	"github.com/kunpai/hashiru/internal/memorystore"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/orchestrator"
	"github.com/kunpai/hashiru/internal/scheduler"
	"github.com/kunpai/hashiru/internal/telemetry"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/prometheus/client_golang/prometheus"
)

// app bundles every long-lived component a CLI command might need, built
// once from the loaded Config.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	budget       *budget.Controller
	modeSet      *modes.ModeSet
	tools        *toolregistry.Registry
	agents       *agentregistry.Registry
	memory       *memorystore.Store
	scheduler    *scheduler.Scheduler
	metrics      *telemetry.Metrics
	orchestrator *orchestrator.Orchestrator
}

// newApp builds the full component graph from cfg and wires every registry's
// built-in tools. The configured ChatBackend is not constructed here; see
// buildOrchestrator.
func newApp(cfg *config.Config) (*app, error) {
	logger := newLogger(cfg.Logging)

	var b *budget.Controller
	if cfg.Budget.TotalResource > 0 {
		b = budget.New(cfg.Budget.TotalResource, cfg.Budget.TotalExpense, logger)
	} else {
		b = budget.NewFromEnvironment(cfg.Budget.VRAMGB, cfg.Budget.TotalExpense, logger)
	}

	modeSet := modes.DefaultModeSet()

	// ENABLE_RESOURCE_BUDGET/ENABLE_ECONOMY_BUDGET are the two modes
	// BudgetController owns (spec.md §4.7: "writes through to
	// BudgetController (two flags)"). Subscribe before the initial Set
	// below so the config file's starting values reach the controller
	// too, not just later CLI-driven toggles.
	modeSet.OnChange(func(s modes.Snapshot) {
		b.SetResourceEnabled(s.EnableResourceBudget)
		b.SetExpenseEnabled(s.EnableEconomyBudget)
	})
	modeSet.Set(cfg.Modes.ApplyTo(modeSet.Snapshot()))

	installer := toolregistry.NewIdempotentInstaller(toolregistry.NoopInstaller{}, logger)
	tools := toolregistry.New(cfg.Tools.SystemDir, cfg.Tools.UserDir, b, modeSet, installer, logger)

	agents := agentregistry.New(cfg.Agents.CatalogPath, b, modeSet, agentregistry.DefaultCostCatalog(), backendFactory, logger)

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	tools.SetMetrics(metrics)
	agents.SetMetrics(metrics)

	memory := memorystore.New(cfg.Memory.StorePath, logger)

	if err := tools.LoadAll(context.Background()); err != nil {
		return nil, fmt.Errorf("load tool manifests: %w", err)
	}
	if err := builtins.RegisterAll(tools, agents, b, memory); err != nil {
		return nil, fmt.Errorf("register built-in tools: %w", err)
	}

	sched := scheduler.New(logger)
	if cfg.Scheduler.MemorySweepCron != "" {
		if err := sched.ScheduleMemorySweep(cfg.Scheduler.MemorySweepCron, memory); err != nil {
			return nil, fmt.Errorf("schedule memory sweep: %w", err)
		}
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		budget:    b,
		modeSet:   modeSet,
		tools:     tools,
		agents:    agents,
		memory:    memory,
		scheduler: sched,
		metrics:   metrics,
	}
	return a, nil
}

// buildOrchestrator lazily constructs the Orchestrator, deferring the
// ChatBackend dial (and its credential check) until a command that
// actually needs generation (chat) is run; admin commands like `tools
// list` or `budget` never touch a provider.
func (a *app) buildOrchestrator() error {
	if a.orchestrator != nil {
		return nil
	}
	chatBackend, err := buildChatBackend(a.cfg.Backend)
	if err != nil {
		return err
	}
	a.orchestrator = orchestrator.New(chatBackend, a.tools, a.budget, a.modeSet, orchestrator.WithLogger(a.logger))
	a.orchestrator.SetMetrics(a.metrics)
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func buildChatBackend(cfg config.BackendConfig) (chatbackend.Backend, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropicbackend.New(cfg.Model), nil
	case "openai":
		return openaibackend.New(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q (want anthropic or openai)", cfg.Provider)
	}
}

// backendFactory resolves a sub-agent's backend type to a concrete
// backend.Backend, reading provider credentials from the environment.
func backendFactory(ctx context.Context, t agentregistry.BackendType, baseModel string) (backend.Backend, error) {
	switch t {
	case agentregistry.BackendOllama:
		return backend.NewOllamaBackend("http://localhost:11434", baseModel), nil
	case agentregistry.BackendGroq:
		return backend.NewGroqBackend(baseModel)
	case agentregistry.BackendGemini:
		return backend.NewGeminiBackend(ctx, baseModel)
	default:
		return nil, fmt.Errorf("unsupported backend type %s", t)
	}
}

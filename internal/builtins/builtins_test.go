package builtins

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/kunpai/hashiru/internal/agentregistry"
	"github.com/kunpai/hashiru/internal/agentregistry/backend"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/memorystore"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/kunpai/hashiru/pkg/models"
)

func newTestComponents(t *testing.T) (*toolregistry.Registry, *agentregistry.Registry, *budget.Controller, *memorystore.Store) {
	t.Helper()
	b := budget.New(1000, 10, nil)
	m := modes.DefaultModeSet()
	tools := toolregistry.New(t.TempDir(), t.TempDir(), b, m, toolregistry.NoopInstaller{}, nil)
	agents := agentregistry.New(filepath.Join(t.TempDir(), "models.json"), b, m, agentregistry.DefaultCostCatalog(),
		func(ctx context.Context, t agentregistry.BackendType, baseModel string) (backend.Backend, error) {
			return nil, nil
		}, nil)
	memory := memorystore.New(filepath.Join(t.TempDir(), "memory.json"), nil)
	return tools, agents, b, memory
}

func TestRegisterAll_InstallsEveryBuiltin(t *testing.T) {
	tools, agents, b, memory := newTestComponents(t)
	if err := RegisterAll(tools, agents, b, memory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"ToolCreator", "ToolDeletor", "AgentCreator", "AskAgent", "FireAgent",
		"GetAgents", "AgentCostManager", "GetBudget", "MemoryManager",
	}
	for _, name := range want {
		if _, ok := tools.Get(name); !ok {
			t.Errorf("expected built-in %s to be registered", name)
		}
	}
}

func TestAgentCostManager_ReturnsCatalog(t *testing.T) {
	tools, agents, b, memory := newTestComponents(t)
	if err := RegisterAll(tools, agents, b, memory); err != nil {
		t.Fatal(err)
	}

	result, err := tools.Execute(context.Background(), "AgentCostManager", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("expected success result, got %+v", result)
	}
}

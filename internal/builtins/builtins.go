// Package builtins wires HASHIRU's built-in tools — the ones that manage
// other components rather than doing external work — into a ToolRegistry
// as native functions (spec.md §4.2 built-in tools: ToolCreator,
// ToolDeletor, AgentCreator, AskAgent, FireAgent, GetAgents,
// AgentCostManager, GetBudget, MemoryManager).
package builtins

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kunpai/hashiru/internal/agentregistry"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/memorystore"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/kunpai/hashiru/internal/toolschema"
	"github.com/kunpai/hashiru/pkg/models"
)

// RegisterAll installs every built-in tool into tools, wiring it to agents,
// b, and memory. Call once at startup, after all four components exist.
func RegisterAll(tools *toolregistry.Registry, agents *agentregistry.Registry, b *budget.Controller, memory *memorystore.Store) error {
	registrations := []func() error{
		func() error { return registerToolCreator(tools) },
		func() error { return registerToolDeletor(tools) },
		func() error { return registerAgentCreator(tools, agents) },
		func() error { return registerAskAgent(tools, agents) },
		func() error { return registerFireAgent(tools, agents) },
		func() error { return registerGetAgents(tools, agents) },
		func() error { return registerAgentCostManager(tools, agents) },
		func() error { return registerGetBudget(tools, b) },
		func() error { return registerMemoryManager(tools, memory) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

func mustSchema(sample any) json.RawMessage {
	schema, err := toolschema.GenerateSchema(sample)
	if err != nil {
		panic(fmt.Sprintf("builtins: generate schema: %v", err))
	}
	return schema
}

// --- ToolCreator -----------------------------------------------------------

type createToolParams struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Command     []string        `json:"command"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

func registerToolCreator(tools *toolregistry.Registry) error {
	schema := mustSchema(createToolParams{})
	return tools.RegisterNative("ToolCreator", "Authors a new tool the manager can invoke in later turns.", schema, toolregistry.Costs{CreateResource: 3},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p createToolParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			return tools.CreateTool(ctx, toolregistry.Manifest{
				Name:         p.Name,
				Description:  p.Description,
				Parameters:   p.Parameters,
				Command:      p.Command,
				Dependencies: p.Dependencies,
				Costs:        toolregistry.Costs{CreateResource: 3},
			})
		})
}

// --- ToolDeletor ------------------------------------------------------------

type deleteToolParams struct {
	Name string `json:"name"`
}

func registerToolDeletor(tools *toolregistry.Registry) error {
	schema := mustSchema(deleteToolParams{})
	return tools.RegisterNative("ToolDeletor", "Deletes a previously created tool and refunds its create-time resource cost.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p deleteToolParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			return tools.DeleteTool(p.Name)
		})
}

// --- AgentCreator ------------------------------------------------------------

type createAgentParams struct {
	Name         string `json:"name"`
	BaseModel    string `json:"base_model"`
	SystemPrompt string `json:"system_prompt"`
}

func registerAgentCreator(tools *toolregistry.Registry, agents *agentregistry.Registry) error {
	schema := mustSchema(createAgentParams{})
	return tools.RegisterNative("AgentCreator", "Creates a named sub-agent bound to a base model.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p createAgentParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			if err := agents.Create(ctx, p.Name, p.BaseModel, p.SystemPrompt); err != nil {
				return models.ErrorResult(err.Error(), nil), err
			}
			return models.SuccessResult(fmt.Sprintf("agent %s created", p.Name), nil), nil
		})
}

// --- AskAgent ------------------------------------------------------------

type askAgentParams struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func registerAskAgent(tools *toolregistry.Registry, agents *agentregistry.Registry) error {
	schema := mustSchema(askAgentParams{})
	return tools.RegisterNative("AskAgent", "Sends a message to a previously created sub-agent and returns its reply.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p askAgentParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			reply, err := agents.Ask(ctx, p.Name, p.Message)
			if err != nil {
				return models.ErrorResult(err.Error(), nil), err
			}
			return models.SuccessResult(reply, nil), nil
		})
}

// --- FireAgent ------------------------------------------------------------

type fireAgentParams struct {
	Name string `json:"name"`
}

func registerFireAgent(tools *toolregistry.Registry, agents *agentregistry.Registry) error {
	schema := mustSchema(fireAgentParams{})
	return tools.RegisterNative("FireAgent", "Deletes a sub-agent, refunding its create-time resource cost only.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p fireAgentParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			if err := agents.Delete(p.Name); err != nil {
				return models.ErrorResult(err.Error(), nil), err
			}
			return models.SuccessResult(fmt.Sprintf("agent %s deleted", p.Name), nil), nil
		})
}

// --- GetAgents ------------------------------------------------------------

type getAgentsParams struct{}

func registerGetAgents(tools *toolregistry.Registry, agents *agentregistry.Registry) error {
	schema := mustSchema(getAgentsParams{})
	return tools.RegisterNative("GetAgents", "Lists every created sub-agent (system prompt omitted).", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			list, err := agents.List()
			if err != nil {
				return models.ErrorResult(err.Error(), nil), err
			}
			return models.SuccessResult(fmt.Sprintf("%d agent(s)", len(list)), list), nil
		})
}

// --- AgentCostManager --------------------------------------------------------

type agentCostManagerParams struct{}

// registerAgentCostManager exposes the static base_model → rate-card
// catalog so the manager model can compare costs before calling
// AgentCreator, rather than discovering a model's price only after
// creating it (spec.md §4.4 AgentCostManager: "the manager consults it
// before creating agents").
func registerAgentCostManager(tools *toolregistry.Registry, agents *agentregistry.Registry) error {
	schema := mustSchema(agentCostManagerParams{})
	return tools.RegisterNative("AgentCostManager", "Lists the cost catalog for every known base_model.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			entries := agents.CostCatalog().Entries()
			return models.SuccessResult(fmt.Sprintf("%d model(s) in catalog", len(entries)), entries), nil
		})
}

// --- GetBudget ------------------------------------------------------------

type getBudgetParams struct{}

func registerGetBudget(tools *toolregistry.Registry, b *budget.Controller) error {
	schema := mustSchema(getBudgetParams{})
	return tools.RegisterNative("GetBudget", "Reports the current resource and expense budget state.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			snap := b.Snapshot()
			return models.SuccessResult("budget snapshot", snap), nil
		})
}

// --- MemoryManager ------------------------------------------------------------

type memoryManagerParams struct {
	Action string `json:"action"` // "add" | "delete" | "list"
	Key    string `json:"key,omitempty"`
	Memory string `json:"memory,omitempty"`
}

func registerMemoryManager(tools *toolregistry.Registry, memory *memorystore.Store) error {
	schema := mustSchema(memoryManagerParams{})
	return tools.RegisterNative("MemoryManager", "Adds, deletes, or lists persisted memories.", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p memoryManagerParams
			if err := json.Unmarshal(args, &p); err != nil {
				return models.ErrorResult("invalid arguments: "+err.Error(), nil), err
			}
			switch p.Action {
			case "add":
				if err := memory.Add(models.MemoryRecord{Key: p.Key, Memory: p.Memory}); err != nil {
					return models.ErrorResult(err.Error(), nil), err
				}
				return models.SuccessResult("memory added", nil), nil
			case "delete":
				if err := memory.Delete(p.Key); err != nil {
					return models.ErrorResult(err.Error(), nil), err
				}
				return models.SuccessResult("memory deleted", nil), nil
			case "list":
				records, err := memory.List()
				if err != nil {
					return models.ErrorResult(err.Error(), nil), err
				}
				return models.SuccessResult(fmt.Sprintf("%d memory record(s)", len(records)), records), nil
			default:
				return models.ErrorResult("action must be one of add, delete, list", nil), fmt.Errorf("unknown action %q", p.Action)
			}
		})
}

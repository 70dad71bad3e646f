// Package agentregistry implements named sub-agent lifecycle management:
// resolving a base_model to a concrete backend, budget-gated creation,
// invocation, and deletion, and atomic catalog persistence to models.json
// (spec.md §3 AgentRegistry, §4.5, §8 "Agent create→ask→delete refund").
package agentregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kunpai/hashiru/internal/agentregistry/backend"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/telemetry"
)

// Descriptor is the persisted, backend-agnostic record of a created agent.
// It omits the live backend.Backend handle, which is reconstructed lazily
// on first Ask after a process restart.
type Descriptor struct {
	Name               string      `json:"name"`
	BaseModel          string      `json:"base_model"`
	SystemPrompt       string      `json:"system_prompt"`
	BackendType        BackendType `json:"backend_type"`
	CreateResourceCost float64     `json:"create_resource_cost"`
}

// instance pairs a persisted Descriptor with its live backend handle, which
// is constructed on demand and cached for the process's lifetime.
type instance struct {
	desc    Descriptor
	backend backend.Backend
}

// BackendFactory constructs a live backend.Backend for a resolved type and
// base model. Injected so tests can substitute a fake without touching
// real credentials or network calls.
type BackendFactory func(ctx context.Context, t BackendType, baseModel string) (backend.Backend, error)

// Registry manages every created sub-agent: its descriptor, live backend,
// and budget accounting.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]*instance
	restored bool

	catalogPath string
	budget      *budget.Controller
	modeSet     *modes.ModeSet
	costs       *CostCatalog
	factory     BackendFactory
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// SetMetrics attaches a telemetry.Metrics bundle so every Ask call reports
// an AskAgent invocation count by agent name. Optional: a nil (or never
// called) metrics bundle just means Ask skips the increment.
func (r *Registry) SetMetrics(m *telemetry.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// New creates a Registry persisting its catalog at catalogPath.
func New(catalogPath string, b *budget.Controller, m *modes.ModeSet, costs *CostCatalog, factory BackendFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if costs == nil {
		costs = DefaultCostCatalog()
	}
	return &Registry{
		agents:      make(map[string]*instance),
		catalogPath: catalogPath,
		budget:      b,
		modeSet:     m,
		costs:       costs,
		factory:     factory,
		logger:      logger,
	}
}

func (r *Registry) restoreLocked() error {
	if r.restored {
		return nil
	}
	r.restored = true

	data, err := os.ReadFile(r.catalogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("agentregistry: read catalog: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var descriptors []Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return fmt.Errorf("agentregistry: parse catalog: %w", err)
	}
	for _, d := range descriptors {
		r.agents[d.Name] = &instance{desc: d}
	}
	return nil
}

func (r *Registry) persistLocked() error {
	descriptors := make([]Descriptor, 0, len(r.agents))
	for _, inst := range r.agents {
		descriptors = append(descriptors, inst.desc)
	}
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("agentregistry: marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.catalogPath), 0o755); err != nil {
		return fmt.Errorf("agentregistry: mkdir: %w", err)
	}
	tmp := r.catalogPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("agentregistry: write temp: %w", err)
	}
	if err := os.Rename(tmp, r.catalogPath); err != nil {
		return fmt.Errorf("agentregistry: rename: %w", err)
	}
	return nil
}

// CostCatalog returns the per-base_model rate card this registry charges
// Ask invocations against, so the AgentCostManager built-in can surface it
// to the manager model before a create/ask decision.
func (r *Registry) CostCatalog() *CostCatalog {
	return r.costs
}

// List returns every agent's descriptor, omitting system_prompt, mirroring
// the Python original's list_agents simplified view.
func (r *Registry) List() ([]Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.restoreLocked(); err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(r.agents))
	for _, inst := range r.agents {
		d := inst.desc
		d.SystemPrompt = ""
		out = append(out, d)
	}
	return out, nil
}

// Create resolves baseModel to a backend type, reserves its create-time
// resource cost, and registers the agent. Returns ErrUnsupportedModel if
// baseModel resolves to no known backend, gated by ENABLE_AGENT_CREATION
// and, per backend type, ENABLE_LOCAL_AGENTS/ENABLE_CLOUD_AGENTS.
func (r *Registry) Create(ctx context.Context, name, baseModel, systemPrompt string) error {
	snap := r.modeSet.Snapshot()
	if !snap.EnableAgentCreation {
		return ErrAgentCreationOff
	}

	backendType := ResolveBackendType(baseModel)
	if backendType == BackendUnsupported {
		return fmt.Errorf("%w: %s", ErrUnsupportedModel, baseModel)
	}
	if backendType.IsLocal() && !snap.EnableLocalAgents {
		return ErrLocalAgentsOff
	}
	if !backendType.IsLocal() && !snap.EnableCloudAgents {
		return ErrCloudAgentsOff
	}

	r.mu.Lock()
	if err := r.restoreLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	if _, exists := r.agents[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}

	rates := r.costs.Lookup(baseModel)
	if err := r.budget.Reserve(rates.CreateResource, rates.CreateExpense); err != nil {
		r.mu.Unlock()
		return err
	}
	factory := r.factory
	r.mu.Unlock()

	// Construct the backend instance now rather than lazily on first Ask,
	// per spec.md §4.5 create() step 4: "Construct the backend instance …
	// on failure, refund the reservation and propagate error." A bad
	// credential or unreachable local daemon must fail create, matching
	// the original's Agent.__init__ raising eagerly in create_agent_class,
	// not surface only on first AskAgent with no refund path.
	var b backend.Backend
	if factory != nil {
		var err error
		b, err = factory(ctx, backendType, baseModel)
		if err != nil {
			r.budget.RefundResource(rates.CreateResource)
			return fmt.Errorf("agentregistry: construct backend for %s: %w", name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		r.budget.RefundResource(rates.CreateResource)
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}

	desc := Descriptor{
		Name:               name,
		BaseModel:          baseModel,
		SystemPrompt:       systemPrompt,
		BackendType:        backendType,
		CreateResourceCost: rates.CreateResource,
	}
	r.agents[name] = &instance{desc: desc, backend: b}
	if err := r.persistLocked(); err != nil {
		delete(r.agents, name)
		r.budget.RefundResource(rates.CreateResource)
		return err
	}
	r.logger.Info("agent created", "name", name, "base_model", baseModel, "backend", backendType)
	return nil
}

// Ask charges invoke-time resource and token-scaled expense, then calls the
// agent's backend. Per the Python original's ask_agent, the charge happens
// before the backend call, not after — a slow or failing call never
// escapes a budget-admitted cost.
func (r *Registry) Ask(ctx context.Context, name, message string) (string, error) {
	r.mu.Lock()
	if err := r.restoreLocked(); err != nil {
		r.mu.Unlock()
		return "", err
	}
	inst, ok := r.agents[name]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	rates := r.costs.Lookup(inst.desc.BaseModel)
	metrics := r.metrics
	r.mu.Unlock()

	if metrics != nil {
		metrics.RecordAgentInvocation(name)
	}

	estimatedInputTokens := backend.EstimateTokens(message) + backend.EstimateTokens(inst.desc.SystemPrompt)
	inputExpense := float64(estimatedInputTokens) / 1_000_000 * rates.InvokeExpensePerMillionTokens
	if err := r.budget.Reserve(rates.InvokeResourceFlat, inputExpense); err != nil {
		return "", err
	}

	b, err := r.backendFor(ctx, inst)
	if err != nil {
		return "", err
	}

	reply, err := b.Ask(ctx, inst.desc.SystemPrompt, message)
	if err != nil {
		return "", err
	}

	outputExpense := float64(backend.EstimateTokens(reply)) / 1_000_000 * rates.InvokeExpensePerMillionTokens
	if outputExpense > 0 {
		if err := r.budget.Reserve(0, outputExpense); err != nil {
			r.logger.Warn("output expense exceeded budget after generation", "agent", name, "error", err)
		}
	}
	return reply, nil
}

func (r *Registry) backendFor(ctx context.Context, inst *instance) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst.backend != nil {
		return inst.backend, nil
	}
	if r.factory == nil {
		return nil, fmt.Errorf("agentregistry: no backend factory configured")
	}
	b, err := r.factory(ctx, inst.desc.BackendType, inst.desc.BaseModel)
	if err != nil {
		return nil, fmt.Errorf("agentregistry: construct backend for %s: %w", inst.desc.Name, err)
	}
	inst.backend = b
	return b, nil
}

// Delete removes an agent and refunds only its create-time resource
// reservation, never any expense already spent invoking it (spec.md
// invariant I3).
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.restoreLocked(); err != nil {
		return err
	}
	inst, ok := r.agents[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	delete(r.agents, name)
	if err := r.persistLocked(); err != nil {
		r.agents[name] = inst
		return err
	}
	r.budget.RefundResource(inst.desc.CreateResourceCost)
	r.logger.Info("agent deleted", "name", name)
	return nil
}

// Package toolregistry implements tool discovery, schema validation,
// budget-gated creation and invocation, and self-healing rollback of
// user-authored tools (spec.md §3 ToolRegistry, §4.2, §4.4, §8 "Self-healing"
// and "Tool-call round-trip").
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/telemetry"
	"github.com/kunpai/hashiru/internal/toolschema"
	"github.com/kunpai/hashiru/pkg/models"
)

// selfHealingNotice is the literal phrasing the Python original's CEO.py
// synthesizes into the function-response when a newly authored tool fails
// to reload, preserved verbatim so the manager model sees the same
// remediation hint it was trained against.
const selfHealingNotice = "doesn't follow the required format, please read the other tool implementations for reference."

// Registry holds every loaded tool, keyed by name, and enforces mode gating
// and budget admission around creation and invocation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor

	systemDir string
	userDir   string

	natives map[string]NativeFunc

	budget     *budget.Controller
	modeSet    *modes.ModeSet
	validator  *toolschema.Validator
	installer  DependencyInstaller
	costBenefit *CostBenefit
	logger     *slog.Logger
	metrics    *telemetry.Metrics

	watchMu     sync.Mutex
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
}

// New creates a Registry that discovers manifests from systemDir (read-only
// reference tools) and userDir (where ToolCreator writes new manifests).
func New(systemDir, userDir string, b *budget.Controller, m *modes.ModeSet, installer DependencyInstaller, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if installer == nil {
		installer = NoopInstaller{}
	}
	return &Registry{
		tools:       make(map[string]*Descriptor),
		systemDir:   systemDir,
		userDir:     userDir,
		budget:      b,
		modeSet:     m,
		validator:   toolschema.NewValidator(),
		installer:   installer,
		costBenefit: NewCostBenefit(),
		logger:      logger,
	}
}

// LoadAll scans both tool directories and populates the registry, replacing
// any previously loaded set. Manifests that fail to parse are logged and
// skipped rather than aborting the whole load.
func (r *Registry) LoadAll(ctx context.Context) error {
	next := make(map[string]*Descriptor)

	if err := r.scanDir(ctx, r.systemDir, false, next); err != nil {
		return err
	}
	if err := r.scanDir(ctx, r.userDir, true, next); err != nil {
		return err
	}

	r.mu.Lock()
	r.tools = next
	r.mu.Unlock()
	return nil
}

func (r *Registry) scanDir(ctx context.Context, dir string, userAuthored bool, into map[string]*Descriptor) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("toolregistry: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".json" && ext != ".json5") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		desc, err := r.loadManifestFile(ctx, path, userAuthored)
		if err != nil {
			r.logger.Warn("skipping unloadable tool manifest", "path", path, "error", err)
			continue
		}
		into[desc.Manifest.Name] = desc
	}
	return nil
}

func (r *Registry) loadManifestFile(ctx context.Context, path string, userAuthored bool) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Manifests are parsed with the lenient json5 reader rather than
	// encoding/json: a manifest written by ToolCreator is LLM output, and
	// trailing commas or a stray comment shouldn't sink an otherwise valid
	// tool the way a strict JSON parser would (mirrors the teacher's
	// config loader, which reads both .json and .json5 through json5).
	var manifest Manifest
	if err := json5.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Name == "" || len(manifest.Command) == 0 {
		return nil, fmt.Errorf("%w: missing name or command", ErrInvalidManifest)
	}

	for _, dep := range manifest.Dependencies {
		_ = r.installer.Ensure(ctx, dep)
	}

	return &Descriptor{Manifest: manifest, Path: path, UserAuthored: userAuthored}, nil
}

// SetMetrics attaches a telemetry.Metrics bundle so every Execute call
// reports an invocation (and, on failure, a failure) count by tool name.
func (r *Registry) SetMetrics(m *telemetry.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// List returns every currently loaded descriptor.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	return out
}

// Execute runs toolName with args after checking invocation gating and
// reserving its invoke-time cost. On success or failure it records the
// outcome in the CostBenefit tracker.
func (r *Registry) Execute(ctx context.Context, toolName string, args json.RawMessage) (models.FunctionResult, error) {
	if !r.modeSet.Snapshot().EnableToolInvocation {
		return models.ErrorResult(fmt.Sprintf("tool invocation is disabled: %s", toolName), nil), ErrInvocationDisabled
	}

	desc, ok := r.Get(toolName)
	if !ok {
		return models.ErrorResult(fmt.Sprintf("tool %s not found", toolName), nil), ErrToolNotFound
	}

	if err := r.validator.Validate(toolName, desc.Manifest.Parameters, args); err != nil {
		r.costBenefit.Record(toolName, false)
		return models.ErrorResult(err.Error(), nil), err
	}

	costs := desc.Manifest.Costs
	if err := r.budget.Reserve(costs.InvokeResource, costs.InvokeExpense); err != nil {
		return models.ErrorResult(err.Error(), nil), err
	}

	r.mu.RLock()
	native, isNative := r.natives[toolName]
	r.mu.RUnlock()

	var result models.FunctionResult
	var err error
	if isNative {
		result, err = native(ctx, args)
	} else {
		result, err = runSubprocess(ctx, desc.Manifest.Command, toolName, args)
	}
	r.costBenefit.Record(toolName, err == nil)
	r.mu.RLock()
	metrics := r.metrics
	r.mu.RUnlock()
	if metrics != nil {
		metrics.RecordToolInvocation(toolName, err == nil)
	}
	if err != nil {
		return models.ErrorResult(err.Error(), nil), err
	}
	return result, nil
}

// CreateTool writes a new manifest to the user tools directory, reserves
// its create-time cost, and attempts to load it. If the load fails, the
// manifest file is deleted and the reservation refunded — the self-healing
// rollback path grounded on the Python original's CEO.py
// handle_tool_calls, which deletes a newly authored tool that fails to
// reload and synthesizes an explanatory function response.
func (r *Registry) CreateTool(ctx context.Context, manifest Manifest) (models.FunctionResult, error) {
	if !r.modeSet.Snapshot().EnableToolCreation {
		return models.ErrorResult("tool creation is disabled", nil), ErrCreationDisabled
	}
	if manifest.Name == "" || len(manifest.Command) == 0 {
		return models.ErrorResult("manifest must declare a name and command", nil), ErrInvalidManifest
	}
	if _, exists := r.Get(manifest.Name); exists {
		return models.ErrorResult(fmt.Sprintf("tool %s already exists", manifest.Name), nil), fmt.Errorf("%w: %s", ErrDuplicateTool, manifest.Name)
	}

	if err := r.budget.Reserve(manifest.Costs.CreateResource, manifest.Costs.CreateExpense); err != nil {
		return models.ErrorResult(err.Error(), nil), err
	}

	path := filepath.Join(r.userDir, manifest.Name+".json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		r.budget.RefundResource(manifest.Costs.CreateResource)
		return models.ErrorResult(err.Error(), nil), err
	}
	if err := os.MkdirAll(r.userDir, 0o755); err != nil {
		r.budget.RefundResource(manifest.Costs.CreateResource)
		return models.ErrorResult(err.Error(), nil), err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.budget.RefundResource(manifest.Costs.CreateResource)
		return models.ErrorResult(err.Error(), nil), err
	}

	desc, err := r.loadManifestFile(ctx, path, true)
	if err != nil {
		return r.rollbackFailedCreate(manifest, path, err)
	}
	if err := desc.validateOwnSchema(r.validator); err != nil {
		return r.rollbackFailedCreate(manifest, path, err)
	}

	r.mu.Lock()
	r.tools[manifest.Name] = desc
	r.mu.Unlock()

	return models.SuccessResult(fmt.Sprintf("tool %s created", manifest.Name), nil), nil
}

// validateOwnSchema compiles a tool's declared parameter schema against
// itself so a malformed schema is caught at creation time rather than on
// first invocation.
func (d *Descriptor) validateOwnSchema(v *toolschema.Validator) error {
	if len(d.Manifest.Parameters) == 0 {
		return fmt.Errorf("%w: tool %s declares no parameters schema", ErrInvalidManifest, d.Manifest.Name)
	}
	return v.Compile(d.Manifest.Name, d.Manifest.Parameters)
}

func (r *Registry) rollbackFailedCreate(manifest Manifest, path string, cause error) (models.FunctionResult, error) {
	_ = os.Remove(path)
	r.budget.RefundResource(manifest.Costs.CreateResource)
	r.logger.Warn("rolling back self-authored tool that failed to load", "tool", manifest.Name, "error", cause)
	msg := fmt.Sprintf("tool %q %s (%v)", manifest.Name, selfHealingNotice, cause)
	return models.ErrorResult(msg, nil), fmt.Errorf("%w: %v", ErrInvalidManifest, cause)
}

// DeleteTool removes a user-authored tool and refunds its create-time
// resource reservation only — never the expense already spent to create
// it, matching the same create/delete asymmetry AgentRegistry enforces
// (spec.md invariant I3, generalized here to tools).
func (r *Registry) DeleteTool(name string) (models.FunctionResult, error) {
	desc, ok := r.Get(name)
	if !ok {
		return models.ErrorResult(fmt.Sprintf("tool %s not found", name), nil), ErrToolNotFound
	}
	if !desc.UserAuthored {
		return models.ErrorResult(fmt.Sprintf("tool %s is a system tool and cannot be deleted", name), nil), fmt.Errorf("%w: %s is not user-authored", ErrInvalidManifest, name)
	}

	if err := os.Remove(desc.Path); err != nil && !os.IsNotExist(err) {
		return models.ErrorResult(err.Error(), nil), err
	}
	r.budget.RefundResource(desc.Manifest.Costs.CreateResource)

	r.mu.Lock()
	delete(r.tools, name)
	r.mu.Unlock()
	r.validator.Forget(name)

	return models.SuccessResult(fmt.Sprintf("tool %s deleted", name), nil), nil
}

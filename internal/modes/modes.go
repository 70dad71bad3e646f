// Package modes implements the ModeSet feature-flag bundle that gates
// creation, invocation, memory, and budget admission across the orchestrator
// (spec.md §3 ModeSet, §4.7 propagation).
package modes

import "sync"

// ModeSet holds the boolean feature flags that gate classes of operations.
// It is mutable at runtime; setting it is a single atomic operation that
// propagates to every subscriber registered via OnChange.
type ModeSet struct {
	mu sync.RWMutex

	enableAgentCreation bool
	enableLocalAgents   bool
	enableCloudAgents   bool
	enableToolCreation  bool
	enableToolInvocation bool
	enableResourceBudget bool
	enableEconomyBudget  bool
	enableMemory         bool

	subscribers []func(Snapshot)
}

// Snapshot is an immutable copy of the current flag values, delivered to
// subscribers on every change so that propagation never races a concurrent
// Set call (spec.md §4.7: "mode changes do not retroactively affect
// in-flight tool dispatches").
type Snapshot struct {
	EnableAgentCreation  bool
	EnableLocalAgents    bool
	EnableCloudAgents    bool
	EnableToolCreation   bool
	EnableToolInvocation bool
	EnableResourceBudget bool
	EnableEconomyBudget  bool
	EnableMemory         bool
}

// DefaultModeSet returns a ModeSet with every mode enabled, the permissive
// default a freshly started process should boot with.
func DefaultModeSet() *ModeSet {
	return &ModeSet{
		enableAgentCreation:  true,
		enableLocalAgents:    true,
		enableCloudAgents:    true,
		enableToolCreation:   true,
		enableToolInvocation: true,
		enableResourceBudget: true,
		enableEconomyBudget:  true,
		enableMemory:         true,
	}
}

// Snapshot returns the current flag values.
func (m *ModeSet) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *ModeSet) snapshotLocked() Snapshot {
	return Snapshot{
		EnableAgentCreation:  m.enableAgentCreation,
		EnableLocalAgents:    m.enableLocalAgents,
		EnableCloudAgents:    m.enableCloudAgents,
		EnableToolCreation:   m.enableToolCreation,
		EnableToolInvocation: m.enableToolInvocation,
		EnableResourceBudget: m.enableResourceBudget,
		EnableEconomyBudget:  m.enableEconomyBudget,
		EnableMemory:         m.enableMemory,
	}
}

// OnChange registers a callback invoked with the new Snapshot every time Set
// is called. The CLI uses it to keep BudgetController's two budget flags in
// sync (spec.md §4.7); ToolRegistry and AgentRegistry read Snapshot directly
// instead of subscribing.
func (m *ModeSet) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Set atomically replaces every flag and notifies subscribers with the
// resulting Snapshot.
func (m *ModeSet) Set(s Snapshot) {
	m.mu.Lock()
	m.enableAgentCreation = s.EnableAgentCreation
	m.enableLocalAgents = s.EnableLocalAgents
	m.enableCloudAgents = s.EnableCloudAgents
	m.enableToolCreation = s.EnableToolCreation
	m.enableToolInvocation = s.EnableToolInvocation
	m.enableResourceBudget = s.EnableResourceBudget
	m.enableEconomyBudget = s.EnableEconomyBudget
	m.enableMemory = s.EnableMemory
	subscribers := append([]func(Snapshot){}, m.subscribers...)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(s)
	}
}

// SetOne flips a single named mode without disturbing the rest, convenient
// for CLI toggles (`hashiru modes set ENABLE_TOOL_INVOCATION false`).
func (m *ModeSet) SetOne(name string, value bool) {
	m.mu.Lock()
	s := m.snapshotLocked()
	switch name {
	case "ENABLE_AGENT_CREATION":
		s.EnableAgentCreation = value
	case "ENABLE_LOCAL_AGENTS":
		s.EnableLocalAgents = value
	case "ENABLE_CLOUD_AGENTS":
		s.EnableCloudAgents = value
	case "ENABLE_TOOL_CREATION":
		s.EnableToolCreation = value
	case "ENABLE_TOOL_INVOCATION":
		s.EnableToolInvocation = value
	case "ENABLE_RESOURCE_BUDGET":
		s.EnableResourceBudget = value
	case "ENABLE_ECONOMY_BUDGET":
		s.EnableEconomyBudget = value
	case "ENABLE_MEMORY":
		s.EnableMemory = value
	}
	m.mu.Unlock()
	m.Set(s)
}

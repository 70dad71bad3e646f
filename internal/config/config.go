// Package config loads HASHIRU's root configuration from YAML, grounded on
// the teacher's internal/config/config.go + loader.go: a single nested
// struct tree with yaml tags, loaded through an $include-aware reader that
// supports splitting configuration across files (spec.md §1 Ambient Stack,
// Configuration).
package config

// Config is the root configuration tree. Every subsystem reads its own
// nested section rather than the whole struct, so adding a new section
// never requires touching unrelated code.
type Config struct {
	Budget    BudgetConfig    `yaml:"budget"`
	Modes     ModesConfig     `yaml:"modes"`
	Tools     ToolsConfig     `yaml:"tools"`
	Agents    AgentsConfig    `yaml:"agents"`
	Memory    MemoryConfig    `yaml:"memory"`
	Backend   BackendConfig   `yaml:"backend"`
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// BudgetConfig seeds the BudgetController's totals. A zero TotalResource
// triggers environment-based sizing (see budget.NewFromEnvironment).
type BudgetConfig struct {
	TotalResource float64 `yaml:"total_resource"`
	TotalExpense  float64 `yaml:"total_expense"`
	VRAMGB        float64 `yaml:"vram_gb"`
}

// ModesConfig is the YAML-serializable mirror of modes.Snapshot, letting a
// deployment boot with some modes pre-disabled.
type ModesConfig struct {
	EnableAgentCreation  *bool `yaml:"enable_agent_creation"`
	EnableLocalAgents    *bool `yaml:"enable_local_agents"`
	EnableCloudAgents    *bool `yaml:"enable_cloud_agents"`
	EnableToolCreation   *bool `yaml:"enable_tool_creation"`
	EnableToolInvocation *bool `yaml:"enable_tool_invocation"`
	EnableResourceBudget *bool `yaml:"enable_resource_budget"`
	EnableEconomyBudget  *bool `yaml:"enable_economy_budget"`
	EnableMemory         *bool `yaml:"enable_memory"`
}

// ToolsConfig points the ToolRegistry at its two discovery directories.
type ToolsConfig struct {
	SystemDir string `yaml:"system_dir"`
	UserDir   string `yaml:"user_dir"`
}

// AgentsConfig points the AgentRegistry at its catalog file.
type AgentsConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}

// MemoryConfig points the MemoryStore at its backing file and sets
// MemoryRetriever's default top-k and threshold.
type MemoryConfig struct {
	StorePath string  `yaml:"store_path"`
	TopK      int     `yaml:"top_k"`
	Threshold float32 `yaml:"threshold"`
}

// BackendConfig selects and configures the manager-loop ChatBackend.
type BackendConfig struct {
	Provider string `yaml:"provider"` // "anthropic" | "openai"
	Model    string `yaml:"model"`
}

// LoggingConfig controls the slog handler (spec.md §1 Ambient Stack, Logging).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "text"
}

// SchedulerConfig controls the cron-driven background sweeps (spec.md §2
// Domain Stack: robfig/cron).
type SchedulerConfig struct {
	MemorySweepCron string `yaml:"memory_sweep_cron"`
}

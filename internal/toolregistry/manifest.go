package toolregistry

import "encoding/json"

// Costs mirrors the four-field cost vector spec.md §4.1 charges against the
// BudgetController: a flat reservation at create time and a (possibly
// token-scaled) charge at every invocation, split across both budget
// dimensions.
type Costs struct {
	CreateResource float64 `json:"create_resource_cost"`
	CreateExpense  float64 `json:"create_expense_cost"`
	InvokeResource float64 `json:"invoke_resource_cost"`
	InvokeExpense  float64 `json:"invoke_expense_cost"`
}

// Manifest is the on-disk JSON description of a tool, authored either by a
// repo maintainer (system tools directory) or by the manager model itself
// via the ToolCreator built-in (user tools directory). Execution is a
// subprocess communicating over stdin/stdout JSON (spec.md §9 design note
// (i)), not a Go-native plugin ABI.
type Manifest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Parameters   json.RawMessage `json:"parameters"`
	Dependencies []string        `json:"dependencies,omitempty"`
	Costs        Costs           `json:"costs"`
	Command      []string        `json:"command"`
}

// Descriptor is the registry's in-memory view of a loaded tool: its
// manifest plus the absolute path it was loaded from, needed to delete or
// reload the backing file.
type Descriptor struct {
	Manifest Manifest
	Path     string
	// UserAuthored marks tools created at runtime via ToolCreator, as
	// opposed to the system tools shipped with the binary. Only
	// user-authored tools are subject to self-healing rollback and
	// deletion by ToolDeletor.
	UserAuthored bool
}

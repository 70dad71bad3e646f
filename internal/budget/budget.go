// Package budget implements the two-dimensional (resource, expense) admission
// controller that every create/invoke operation in HASHIRU must clear before
// it proceeds (spec.md §3 Budget, §4.1 BudgetController, §8 P1/P2).
package budget

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
)

// Dimension names a budget axis.
type Dimension string

const (
	DimensionResource Dimension = "resource"
	DimensionExpense  Dimension = "expense"
)

// ErrExceeded is returned by Reserve when admission would violate either
// budget. Controllers further up the stack (ToolRegistry, AgentRegistry)
// convert this into a function-response error rather than letting it
// propagate as a Go panic (spec.md §7 taxonomy item 1).
var ErrExceeded = errors.New("budget exceeded")

// ExceededError carries the structured fields spec.md §7 requires:
// {dimension, requested, remaining}.
type ExceededError struct {
	Dimension Dimension
	Requested float64
	Remaining float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: dimension=%s requested=%.4f remaining=%.4f", e.Dimension, e.Requested, e.Remaining)
}

func (e *ExceededError) Unwrap() error { return ErrExceeded }

// InvariantError signals state corruption (a refund would drive usage
// negative). Per spec.md §7 item 8, this is the one error class that is
// allowed to crash the session rather than being silently clamped.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "budget invariant violated: " + e.Message }

// Controller tracks used/total resource and expense budgets and admits or
// rejects reservations against them. All mutations are serialized under a
// single mutex (spec.md §5); reads return a consistent snapshot.
type Controller struct {
	mu sync.Mutex

	totalResource float64
	usedResource  float64
	resourceOn    bool

	totalExpense float64
	usedExpense  float64
	expenseOn    bool

	logger *slog.Logger
}

// Snapshot is a point-in-time, race-free view of the controller's state.
type Snapshot struct {
	TotalResource float64
	UsedResource  float64
	ResourceOn    bool
	TotalExpense  float64
	UsedExpense   float64
	ExpenseOn     bool
}

// RemainingResource returns the unused portion of the resource budget.
func (s Snapshot) RemainingResource() float64 { return s.TotalResource - s.UsedResource }

// RemainingExpense returns the unused portion of the expense budget.
func (s Snapshot) RemainingExpense() float64 { return s.TotalExpense - s.UsedExpense }

// New creates a Controller with explicit totals, both dimensions enabled.
// Most callers should use NewFromEnvironment, which derives TotalResource
// from detected system capacity per spec.md §4.1.
func New(totalResource, totalExpense float64, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		totalResource: totalResource,
		resourceOn:    true,
		totalExpense:  totalExpense,
		expenseOn:     true,
		logger:        logger,
	}
}

// NewFromEnvironment sizes the resource budget from detected machine
// capacity: total_resource = round(((ram_gb + vram_gb) / 16) * 100), the
// same formula as the Python original's BudgetManager.calculate_total_budget.
// VRAM detection has no portable stdlib path and no GPU library appears
// anywhere in the example corpus, so vramGB must be supplied by the caller
// (0 when no accelerator is present or detection is unavailable).
func NewFromEnvironment(vramGB float64, totalExpense float64, logger *slog.Logger) *Controller {
	ramGB := detectRAMGB()
	total := math.Round(((ramGB + vramGB) / 16) * 100)
	c := New(total, totalExpense, logger)
	c.logger.Info("budget sized from environment", "ram_gb", ramGB, "vram_gb", vramGB, "total_resource", total)
	return c
}

// detectRAMGB estimates total addressable memory in GB. The standard library
// has no portable "total system RAM" call; runtime.MemStats.Sys reflects
// only this process's reservation, which is the closest stdlib proxy
// available without adding a platform-specific dependency the example
// corpus doesn't carry (see DESIGN.md for the justification).
func detectRAMGB() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	gb := float64(stats.Sys) / (1024 * 1024 * 1024)
	if gb < 1 {
		gb = 1
	}
	return gb
}

// Snapshot returns a consistent, race-free view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		TotalResource: c.totalResource,
		UsedResource:  c.usedResource,
		ResourceOn:    c.resourceOn,
		TotalExpense:  c.totalExpense,
		UsedExpense:   c.usedExpense,
		ExpenseOn:     c.expenseOn,
	}
}

// CanSpendResource reports whether cost fits within the remaining resource
// budget. Always true when the resource dimension is disabled.
func (c *Controller) CanSpendResource(cost float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSpendResourceLocked(cost)
}

func (c *Controller) canSpendResourceLocked(cost float64) bool {
	if !c.resourceOn {
		return true
	}
	return c.usedResource+cost <= c.totalResource
}

// CanSpendExpense reports whether cost fits within the remaining expense
// budget. Always true when the expense dimension is disabled.
func (c *Controller) CanSpendExpense(cost float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSpendExpenseLocked(cost)
}

func (c *Controller) canSpendExpenseLocked(cost float64) bool {
	if !c.expenseOn {
		return true
	}
	return c.usedExpense+cost <= c.totalExpense
}

// Reserve atomically admits a (resourceCost, expenseCost) pair: either both
// counters increment or neither does (spec.md invariant I2, property P2).
func (c *Controller) Reserve(resourceCost, expenseCost float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canSpendResourceLocked(resourceCost) {
		return &ExceededError{
			Dimension: DimensionResource,
			Requested: resourceCost,
			Remaining: c.totalResource - c.usedResource,
		}
	}
	if !c.canSpendExpenseLocked(expenseCost) {
		return &ExceededError{
			Dimension: DimensionExpense,
			Requested: expenseCost,
			Remaining: c.totalExpense - c.usedExpense,
		}
	}

	c.usedResource += resourceCost
	c.usedExpense += expenseCost
	c.logger.Debug("budget reserved", "resource_cost", resourceCost, "expense_cost", expenseCost,
		"resource_remaining", c.totalResource-c.usedResource, "expense_remaining", c.totalExpense-c.usedExpense)
	return nil
}

// RefundResource decrements used_resource by cost, reflecting a deletion's
// refund of its create-time reservation (spec.md invariant I3: deletion
// never refunds expense). Per spec.md §7 item 8, a refund that would drive
// used_resource negative is state corruption, not a recoverable condition:
// it panics with an *InvariantError rather than being clamped and
// swallowed.
func (c *Controller) RefundResource(cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.usedResource-cost < -1e-9 {
		panic(&InvariantError{Message: fmt.Sprintf("refund of %.4f would drive used_resource negative (currently %.4f)", cost, c.usedResource)})
	}
	c.usedResource -= cost
	if c.usedResource < 0 {
		c.usedResource = 0
	}
	c.logger.Debug("budget refunded", "resource_cost", cost, "resource_remaining", c.totalResource-c.usedResource)
}

// SetResourceEnabled toggles resource-dimension admission.
func (c *Controller) SetResourceEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resourceOn = enabled
}

// SetExpenseEnabled toggles expense-dimension admission.
func (c *Controller) SetExpenseEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expenseOn = enabled
}

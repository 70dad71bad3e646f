// Package telemetry exposes prometheus metrics for budget state and tool
// invocations, the observability leg of SPEC_FULL.md's domain stack that
// the distilled spec.md doesn't name but a deployed orchestrator needs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every gauge/counter the orchestrator and registries
// update. Construct once per process and register with a
// prometheus.Registerer (typically prometheus.DefaultRegisterer).
type Metrics struct {
	ResourceUsed      prometheus.Gauge
	ResourceTotal     prometheus.Gauge
	ExpenseUsed       prometheus.Gauge
	ExpenseTotal      prometheus.Gauge
	ToolInvocations   *prometheus.CounterVec
	ToolFailures      *prometheus.CounterVec
	AgentInvocations  *prometheus.CounterVec
	TurnIterations    prometheus.Histogram
}

// New constructs a Metrics bundle with the "hashiru" namespace and
// registers every metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResourceUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hashiru", Subsystem: "budget", Name: "resource_used",
			Help: "Current used_resource value.",
		}),
		ResourceTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hashiru", Subsystem: "budget", Name: "resource_total",
			Help: "Current total_resource value.",
		}),
		ExpenseUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hashiru", Subsystem: "budget", Name: "expense_used",
			Help: "Current used_expense value.",
		}),
		ExpenseTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hashiru", Subsystem: "budget", Name: "expense_total",
			Help: "Current total_expense value.",
		}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashiru", Subsystem: "tools", Name: "invocations_total",
			Help: "Total tool invocations by tool name.",
		}, []string{"tool"}),
		ToolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashiru", Subsystem: "tools", Name: "failures_total",
			Help: "Total failed tool invocations by tool name.",
		}, []string{"tool"}),
		AgentInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashiru", Subsystem: "agents", Name: "invocations_total",
			Help: "Total AskAgent calls by agent name.",
		}, []string{"agent"}),
		TurnIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hashiru", Subsystem: "orchestrator", Name: "turn_iterations",
			Help:    "Number of generate/dispatch iterations per turn.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}

	reg.MustRegister(m.ResourceUsed, m.ResourceTotal, m.ExpenseUsed, m.ExpenseTotal,
		m.ToolInvocations, m.ToolFailures, m.AgentInvocations, m.TurnIterations)
	return m
}

// RecordBudget updates the four budget gauges from a budget.Snapshot-shaped
// set of values. Taking plain floats rather than the budget package's
// Snapshot type keeps this package free of a dependency on budget.
func (m *Metrics) RecordBudget(usedResource, totalResource, usedExpense, totalExpense float64) {
	m.ResourceUsed.Set(usedResource)
	m.ResourceTotal.Set(totalResource)
	m.ExpenseUsed.Set(usedExpense)
	m.ExpenseTotal.Set(totalExpense)
}

// RecordToolInvocation increments the invocation counter for toolName, and
// the failure counter too if the call did not succeed.
func (m *Metrics) RecordToolInvocation(toolName string, success bool) {
	m.ToolInvocations.WithLabelValues(toolName).Inc()
	if !success {
		m.ToolFailures.WithLabelValues(toolName).Inc()
	}
}

// RecordAgentInvocation increments the AskAgent counter for agentName.
func (m *Metrics) RecordAgentInvocation(agentName string) {
	m.AgentInvocations.WithLabelValues(agentName).Inc()
}

// RecordTurnIterations observes how many generate/dispatch iterations one
// Turn call took before ending, successfully or not.
func (m *Metrics) RecordTurnIterations(iterations int) {
	m.TurnIterations.Observe(float64(iterations))
}

package modes

import (
	"sync"
	"testing"
)

func TestDefaultModeSet_AllEnabled(t *testing.T) {
	m := DefaultModeSet()
	s := m.Snapshot()
	if !s.EnableAgentCreation || !s.EnableLocalAgents || !s.EnableCloudAgents ||
		!s.EnableToolCreation || !s.EnableToolInvocation || !s.EnableResourceBudget ||
		!s.EnableEconomyBudget || !s.EnableMemory {
		t.Errorf("expected all modes enabled by default, got %+v", s)
	}
}

func TestModeSet_SetPropagatesToSubscribers(t *testing.T) {
	m := DefaultModeSet()

	var mu sync.Mutex
	var received []Snapshot
	m.OnChange(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, s)
	})

	next := m.Snapshot()
	next.EnableToolInvocation = false
	m.Set(next)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(received))
	}
	if received[0].EnableToolInvocation {
		t.Error("subscriber should observe the new, disabled value")
	}
	if !m.Snapshot().EnableAgentCreation {
		t.Error("unrelated flags should be unaffected")
	}
}

func TestModeSet_SetOne(t *testing.T) {
	m := DefaultModeSet()
	m.SetOne("ENABLE_CLOUD_AGENTS", false)
	s := m.Snapshot()
	if s.EnableCloudAgents {
		t.Error("expected cloud agents disabled")
	}
	if !s.EnableLocalAgents {
		t.Error("local agents should be untouched")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kunpai/hashiru/internal/modes"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Simple(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
budget:
  total_resource: 50
  total_expense: 1.0
backend:
  provider: anthropic
  model: claude-sonnet
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Budget.TotalResource != 50 {
		t.Errorf("total_resource = %v, want 50", cfg.Budget.TotalResource)
	}
	if cfg.Backend.Provider != "anthropic" {
		t.Errorf("provider = %v, want anthropic", cfg.Backend.Provider)
	}
}

func TestLoad_IncludeMergesBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
budget:
  total_resource: 100
  total_expense: 2.0
tools:
  system_dir: /opt/tools
`)
	path := writeFile(t, dir, "override.yaml", `
$include: base.yaml
budget:
  total_expense: 5.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Budget.TotalResource != 100 {
		t.Errorf("expected base's total_resource to survive merge, got %v", cfg.Budget.TotalResource)
	}
	if cfg.Budget.TotalExpense != 5.0 {
		t.Errorf("expected override's total_expense to win, got %v", cfg.Budget.TotalExpense)
	}
	if cfg.Tools.SystemDir != "/opt/tools" {
		t.Errorf("expected unrelated base section to survive merge, got %v", cfg.Tools.SystemDir)
	}
}

func TestLoad_IncludeCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `$include: b.yaml`)
	pathB := writeFile(t, dir, "b.yaml", `$include: a.yaml`)

	_, err := Load(pathB)
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestModesConfig_ApplyTo(t *testing.T) {
	base := modes.DefaultModeSet().Snapshot()
	disabled := false
	override := ModesConfig{EnableMemory: &disabled}

	result := override.ApplyTo(base)
	if result.EnableMemory {
		t.Error("expected EnableMemory to be overridden to false")
	}
	if !result.EnableAgentCreation {
		t.Error("unset fields should retain the base value")
	}
}

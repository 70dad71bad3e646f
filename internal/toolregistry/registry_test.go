package toolregistry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/modes"
)

const echoSchema = `{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`

func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, m.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRegistry(t *testing.T) (*Registry, string, string) {
	t.Helper()
	systemDir := t.TempDir()
	userDir := t.TempDir()
	b := budget.New(1000, 10, nil)
	m := modes.DefaultModeSet()
	return New(systemDir, userDir, b, m, NoopInstaller{}, nil), systemDir, userDir
}

func TestLoadAll_DiscoversSystemAndUserTools(t *testing.T) {
	r, systemDir, userDir := newTestRegistry(t)

	writeManifest(t, systemDir, Manifest{
		Name: "echo", Description: "echoes input",
		Parameters: json.RawMessage(echoSchema),
		Command:    []string{"/bin/true"},
	})
	writeManifest(t, userDir, Manifest{
		Name: "custom", Description: "user tool",
		Parameters: json.RawMessage(echoSchema),
		Command:    []string{"/bin/true"},
	})

	if err := r.LoadAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := r.Get("echo"); !ok {
		t.Error("expected system tool 'echo' to be loaded")
	}
	if _, ok := r.Get("custom"); !ok {
		t.Error("expected user tool 'custom' to be loaded")
	}
}

func TestExecute_ToolNotFound(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Execute(context.Background(), "nonexistent", json.RawMessage(`{}`))
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestExecute_InvocationDisabled(t *testing.T) {
	r, systemDir, _ := newTestRegistry(t)
	writeManifest(t, systemDir, Manifest{
		Name: "echo", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if err := r.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := r.modeSet.Snapshot()
	snap.EnableToolInvocation = false
	r.modeSet.Set(snap)

	_, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"message":"hi"}`))
	if !errors.Is(err, ErrInvocationDisabled) {
		t.Fatalf("expected ErrInvocationDisabled, got %v", err)
	}
}

func TestExecute_SchemaValidationRejectsBadArgs(t *testing.T) {
	r, systemDir, _ := newTestRegistry(t)
	writeManifest(t, systemDir, Manifest{
		Name: "echo", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if err := r.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := r.Execute(context.Background(), "echo", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected validation error for missing required 'message' field")
	}
}

func TestCreateTool_DuplicateNameRejected(t *testing.T) {
	r, systemDir, _ := newTestRegistry(t)
	writeManifest(t, systemDir, Manifest{
		Name: "echo", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if err := r.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := r.CreateTool(context.Background(), Manifest{
		Name: "echo", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestCreateTool_SelfHealingRollbackOnMalformedSchema(t *testing.T) {
	r, _, userDir := newTestRegistry(t)

	_, err := r.CreateTool(context.Background(), Manifest{
		Name:       "broken",
		Parameters: json.RawMessage(`{"type": "not-a-real-type"}`),
		Command:    []string{"/bin/true"},
	})
	if err == nil {
		t.Fatal("expected malformed schema to fail creation")
	}

	if _, ok := r.Get("broken"); ok {
		t.Error("malformed tool should not remain registered")
	}
	if _, statErr := os.Stat(filepath.Join(userDir, "broken.json")); !os.IsNotExist(statErr) {
		t.Error("manifest file should have been deleted on rollback")
	}
	if got := r.budget.Snapshot().UsedResource; got != 0 {
		t.Errorf("create-time reservation should have been refunded, used_resource=%v", got)
	}
}

func TestCreateTool_BudgetExceeded(t *testing.T) {
	b := budget.New(1, 10, nil)
	m := modes.DefaultModeSet()
	r := New(t.TempDir(), t.TempDir(), b, m, NoopInstaller{}, nil)

	_, err := r.CreateTool(context.Background(), Manifest{
		Name:       "expensive",
		Parameters: json.RawMessage(echoSchema),
		Command:    []string{"/bin/true"},
		Costs:      Costs{CreateResource: 100},
	})
	var exceeded *budget.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected budget.ExceededError, got %v", err)
	}
}

func TestCreateTool_Disabled(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	snap := r.modeSet.Snapshot()
	snap.EnableToolCreation = false
	r.modeSet.Set(snap)

	_, err := r.CreateTool(context.Background(), Manifest{
		Name: "new", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if !errors.Is(err, ErrCreationDisabled) {
		t.Fatalf("expected ErrCreationDisabled, got %v", err)
	}
}

func TestDeleteTool_RefundsCreateResourceOnly(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.CreateTool(context.Background(), Manifest{
		Name:       "temp",
		Parameters: json.RawMessage(echoSchema),
		Command:    []string{"/bin/true"},
		Costs:      Costs{CreateResource: 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.budget.Snapshot().UsedResource; got != 5 {
		t.Fatalf("expected used_resource=5 after create, got %v", got)
	}

	if _, err := r.DeleteTool("temp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.budget.Snapshot().UsedResource; got != 0 {
		t.Errorf("expected create-resource to be refunded, used_resource=%v", got)
	}
	if _, ok := r.Get("temp"); ok {
		t.Error("deleted tool should no longer be registered")
	}
}

func TestDeleteTool_CannotDeleteSystemTool(t *testing.T) {
	r, systemDir, _ := newTestRegistry(t)
	writeManifest(t, systemDir, Manifest{
		Name: "echo", Parameters: json.RawMessage(echoSchema), Command: []string{"/bin/true"},
	})
	if err := r.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := r.DeleteTool("echo")
	if err == nil {
		t.Fatal("expected error deleting a system tool")
	}
	if _, ok := r.Get("echo"); !ok {
		t.Error("system tool should remain registered")
	}
}

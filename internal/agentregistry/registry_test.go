package agentregistry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kunpai/hashiru/internal/agentregistry/backend"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/modes"
)

type fakeBackend struct{ reply string }

func (f *fakeBackend) Ask(_ context.Context, _, _ string) (string, error) { return f.reply, nil }
func (f *fakeBackend) CountTokens(text string) int                        { return backend.EstimateTokens(text) }

func fakeFactory(reply string) BackendFactory {
	return func(ctx context.Context, t BackendType, baseModel string) (backend.Backend, error) {
		return &fakeBackend{reply: reply}, nil
	}
}

func newTestRegistry(t *testing.T, totalResource, totalExpense float64) (*Registry, *budget.Controller) {
	t.Helper()
	b := budget.New(totalResource, totalExpense, nil)
	m := modes.DefaultModeSet()
	catalog := DefaultCostCatalog()
	r := New(filepath.Join(t.TempDir(), "models.json"), b, m, catalog, fakeFactory("hello from agent"), nil)
	return r, b
}

func TestResolveBackendType(t *testing.T) {
	cases := map[string]BackendType{
		"llama3.2":                     BackendOllama,
		"mistral":                      BackendOllama,
		"deepseek-r1":                  BackendOllama,
		"gemini-2.5-pro":               BackendGemini,
		"groq/llama-3.3-70b-versatile": BackendGroq,
		"unknown-model":                BackendUnsupported,
	}
	for model, want := range cases {
		if got := ResolveBackendType(model); got != want {
			t.Errorf("ResolveBackendType(%q) = %s, want %s", model, got, want)
		}
	}
}

func TestCreateAskDelete_RefundCycle(t *testing.T) {
	r, b := newTestRegistry(t, 100, 1.0)

	if err := r.Create(context.Background(), "helper", "gemini-2.5-flash", "be helpful"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	afterCreate := b.Snapshot().UsedResource
	if afterCreate == 0 {
		t.Fatal("expected create to reserve nonzero resource cost")
	}

	reply, err := r.Ask(context.Background(), "helper", "what's the weather?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello from agent" {
		t.Errorf("unexpected reply: %s", reply)
	}

	if err := r.Delete("helper"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	afterDelete := b.Snapshot().UsedResource
	if afterDelete != 0 {
		t.Errorf("expected delete to refund exactly the create-time resource cost, used_resource=%v", afterDelete)
	}

	remainingExpense := b.Snapshot().UsedExpense
	if remainingExpense == 0 {
		t.Error("expense spent on invocation should never be refunded by delete")
	}
}

func TestCreate_UnsupportedModel(t *testing.T) {
	r, _ := newTestRegistry(t, 100, 1.0)
	err := r.Create(context.Background(), "bad", "some-random-model", "")
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	r, _ := newTestRegistry(t, 100, 1.0)
	if err := r.Create(context.Background(), "dup", "gemini-2.5-flash", ""); err != nil {
		t.Fatal(err)
	}
	err := r.Create(context.Background(), "dup", "gemini-2.5-flash", "")
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestCreate_ModeGating(t *testing.T) {
	r, _ := newTestRegistry(t, 100, 1.0)
	snap := r.modeSet.Snapshot()
	snap.EnableCloudAgents = false
	r.modeSet.Set(snap)

	err := r.Create(context.Background(), "cloud-agent", "gemini-2.5-flash", "")
	if !errors.Is(err, ErrCloudAgentsOff) {
		t.Fatalf("expected ErrCloudAgentsOff, got %v", err)
	}

	err = r.Create(context.Background(), "local-agent", "llama3.2", "")
	if err != nil {
		t.Fatalf("local agent creation should still succeed: %v", err)
	}
}

func TestAsk_AgentNotFound(t *testing.T) {
	r, _ := newTestRegistry(t, 100, 1.0)
	_, err := r.Ask(context.Background(), "missing", "hi")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestCostCatalog_EntriesIsDefensiveCopy(t *testing.T) {
	r, _ := newTestRegistry(t, 100, 1.0)
	entries := r.CostCatalog().Entries()
	if len(entries) == 0 {
		t.Fatal("expected the default cost catalog to be non-empty")
	}
	delete(entries, "gemini-2.5-flash")
	if _, ok := r.CostCatalog().Entries()["gemini-2.5-flash"]; !ok {
		t.Error("mutating the returned map should not affect the registry's catalog")
	}
}

func TestCatalogPersistence_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")
	b := budget.New(100, 1.0, nil)
	m := modes.DefaultModeSet()

	r1 := New(path, b, m, DefaultCostCatalog(), fakeFactory("x"), nil)
	if err := r1.Create(context.Background(), "persisted", "llama3.2", "secret prompt"); err != nil {
		t.Fatal(err)
	}

	r2 := New(path, budget.New(100, 1.0, nil), m, DefaultCostCatalog(), fakeFactory("x"), nil)
	list, err := r2.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Name != "persisted" {
		t.Fatalf("expected reload to recover persisted agent, got %+v", list)
	}
	if list[0].SystemPrompt != "" {
		t.Error("List should omit system_prompt, matching the original's simplified view")
	}
}

package memoryretriever

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kunpai/hashiru/internal/memorystore"
	"github.com/kunpai/hashiru/pkg/models"
)

// keywordEmbedder is a deterministic fake: each dimension corresponds to a
// fixed vocabulary word, set to 1 if the word appears in the text.
type keywordEmbedder struct {
	vocab     []string
	failOn    string
	failCalls int
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if k.failOn != "" && strings.Contains(text, k.failOn) {
		k.failCalls++
		return nil, errors.New("embedder unavailable")
	}
	vec := make([]float32, len(k.vocab))
	lower := strings.ToLower(text)
	for i, word := range k.vocab {
		if strings.Contains(lower, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func TestTopK_PetCityScenario(t *testing.T) {
	dir := t.TempDir()
	store := memorystore.New(filepath.Join(dir, "memory.json"), nil)
	if err := store.Add(models.MemoryRecord{Key: "pet", Memory: "the user's pet is a cat named Waffles"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(models.MemoryRecord{Key: "city", Memory: "the user lives in Boston"}); err != nil {
		t.Fatal(err)
	}

	e := &keywordEmbedder{vocab: []string{"pet", "cat", "city", "boston"}}
	r := New(store, e, nil)

	results := r.TopK(context.Background(), "what is my pet's name", 5, 0.1)
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d: %+v", len(results), results)
	}
	if results[0].Key != "pet" {
		t.Errorf("expected pet memory to rank first, got %s", results[0].Key)
	}
}

func TestTopK_EmptyStoreReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := memorystore.New(filepath.Join(dir, "memory.json"), nil)
	e := &keywordEmbedder{vocab: []string{"x"}}
	r := New(store, e, nil)

	results := r.TopK(context.Background(), "anything", 5, 0.1)
	if len(results) != 0 {
		t.Errorf("expected no results for empty store, got %+v", results)
	}
}

func TestTopK_ToleratesEmbedderFailure(t *testing.T) {
	dir := t.TempDir()
	store := memorystore.New(filepath.Join(dir, "memory.json"), nil)
	if err := store.Add(models.MemoryRecord{Key: "broken", Memory: "causes a failure"}); err != nil {
		t.Fatal(err)
	}
	e := &keywordEmbedder{vocab: []string{"failure"}, failOn: "causes a failure"}
	r := New(store, e, nil)

	results := r.TopK(context.Background(), "failure", 5, 0.1)
	if results != nil {
		t.Errorf("expected nil results when every record's embedding fails, got %+v", results)
	}
}

func TestTopK_RespectsKLimit(t *testing.T) {
	dir := t.TempDir()
	store := memorystore.New(filepath.Join(dir, "memory.json"), nil)
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := store.Add(models.MemoryRecord{Key: key, Memory: "match word"}); err != nil {
			t.Fatal(err)
		}
	}
	e := &keywordEmbedder{vocab: []string{"match", "word"}}
	r := New(store, e, nil)

	results := r.TopK(context.Background(), "match word", 2, 0.1)
	if len(results) != 2 {
		t.Fatalf("expected k=2 results, got %d", len(results))
	}
}

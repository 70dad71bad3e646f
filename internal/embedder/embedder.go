// Package embedder defines the abstract embedding collaborator that
// MemoryRetriever depends on (spec.md §3 Embedder). Concrete
// implementations live behind whichever backend's SDK is configured; none
// is wired here, mirroring the teacher's embeddings.Provider boundary in
// internal/memory/manager.go.
package embedder

import "context"

// Embedder turns text into a fixed-dimensionality vector. Implementations
// must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Package memoryretriever implements top-k cosine-similarity memory recall
// over a MemoryStore (spec.md §3 MemoryRetriever, §8 "Memory retrieval").
package memoryretriever

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/kunpai/hashiru/internal/embedder"
	"github.com/kunpai/hashiru/internal/memorystore"
	"github.com/kunpai/hashiru/pkg/models"
)

// Retriever ranks a MemoryStore's records against a query embedding and
// returns the top-k above a similarity threshold.
type Retriever struct {
	store    *memorystore.Store
	embedder embedder.Embedder
	logger   *slog.Logger
}

// New creates a Retriever over store using embedder to vectorize both the
// query and each stored memory's text.
func New(store *memorystore.Store, e embedder.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, embedder: e, logger: logger}
}

// TopK returns up to k memories whose cosine similarity to query meets or
// exceeds threshold, sorted by descending score. An empty store returns an
// empty result. If the embedder fails on any input, TopK logs the error and
// returns an empty result rather than failing the caller's turn (spec.md
// §4.3: memory is best-effort enrichment, never a hard dependency).
func (r *Retriever) TopK(ctx context.Context, query string, k int, threshold float32) []models.ScoredMemory {
	records, err := r.store.List()
	if err != nil {
		r.logger.Warn("memory retrieval: failed to list store", "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("memory retrieval: embedder failed on query", "error", err)
		return nil
	}

	scored := make([]models.ScoredMemory, 0, len(records))
	for _, rec := range records {
		vec, err := r.embedder.Embed(ctx, rec.Memory)
		if err != nil {
			r.logger.Warn("memory retrieval: embedder failed on record", "key", rec.Key, "error", err)
			return nil
		}
		score := cosineSimilarity(queryVec, vec)
		if score < threshold {
			continue
		}
		scored = append(scored, models.ScoredMemory{MemoryRecord: rec, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

package models

// MemoryRecord is a single persisted memory (spec.md §3, §6 memory.json).
// Keys are unique within a MemoryStore; there is no implicit dedup by
// content (invariant I5).
type MemoryRecord struct {
	Key    string `json:"key"`
	Memory string `json:"memory"`
}

// ScoredMemory pairs a MemoryRecord with its cosine similarity to a query,
// returned by MemoryRetriever.TopK.
type ScoredMemory struct {
	MemoryRecord
	Score float32 `json:"score"`
}

// Package memorystore implements the flat, file-backed memory.json array
// described in spec.md §3 MemoryStore and §6, persisted with the same
// atomic temp-file-plus-rename pattern the teacher's subagent catalog uses.
package memorystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kunpai/hashiru/pkg/models"
)

// ErrDuplicateKey is returned by Add when the key already exists.
var ErrDuplicateKey = errors.New("memory key already exists")

// ErrNotFound is returned by Delete when the key does not exist.
var ErrNotFound = errors.New("memory key not found")

// Store is a JSON-array-backed, mutex-guarded memory catalog. Every mutation
// persists the full array atomically: marshal, write to path+".tmp", rename
// over path (grounded on the teacher's subagent_registry.go persist/restore).
type Store struct {
	mu       sync.Mutex
	path     string
	records  []models.MemoryRecord
	restored bool
	logger   *slog.Logger
}

// New creates a Store backed by path. The file is not read until the first
// operation, and only then.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

func (s *Store) restoreLocked() error {
	if s.restored {
		return nil
	}
	s.restored = true

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.records = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("memorystore: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		s.records = nil
		return nil
	}
	var records []models.MemoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("memorystore: parse %s: %w", s.path, err)
	}
	s.records = records
	return nil
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("memorystore: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("memorystore: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memorystore: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("memorystore: rename: %w", err)
	}
	return nil
}

// List returns every stored memory, in insertion order.
func (s *Store) List() ([]models.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLocked(); err != nil {
		return nil, err
	}
	out := make([]models.MemoryRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Add appends a new memory record. Fails with ErrDuplicateKey if the key is
// already present (invariant I5: keys are unique, no implicit dedup by
// content).
func (s *Store) Add(rec models.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLocked(); err != nil {
		return err
	}
	for _, r := range s.records {
		if r.Key == rec.Key {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
		}
	}
	s.records = append(s.records, rec)
	if err := s.persistLocked(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	s.logger.Debug("memory added", "key", rec.Key)
	return nil
}

// Delete removes the memory with the given key. Fails with ErrNotFound if
// no such key exists.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLocked(); err != nil {
		return err
	}
	idx := -1
	for i, r := range s.records {
		if r.Key == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	removed := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.records = append(s.records[:idx:idx], append([]models.MemoryRecord{removed}, s.records[idx:]...)...)
		return err
	}
	s.logger.Debug("memory deleted", "key", key)
	return nil
}

// ReplaceAll overwrites the entire catalog. Intended for tests and bulk
// imports, not the normal add/delete lifecycle.
func (s *Store) ReplaceAll(records []models.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = true
	prev := s.records
	s.records = records
	if err := s.persistLocked(); err != nil {
		s.records = prev
		return err
	}
	return nil
}

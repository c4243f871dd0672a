package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store implementation used in tests and local
// development. Documents are held as decoded JSON objects so merge and
// query semantics match the JSONB-backed store.
type MemoryStore struct {
	collections map[string]map[string]map[string]any
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, out any) error {
	// Decode under the read lock: Merge mutates stored objects in place, so
	// encoding a document after releasing the lock would race with writers.
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decode(doc, out)
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, doc any) error {
	obj, err := toObject(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = obj
	return nil
}

func (s *MemoryStore) Merge(_ context.Context, collection, id string, partial map[string]any) error {
	norm, err := toObject(partial)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range norm {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, eq map[string]any, out any) error {
	filter, err := toObject(eq)
	if err != nil {
		return err
	}

	// Match and decode under the read lock for the same reason as Get.
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]map[string]any, 0)
	for _, doc := range s.collections[collection] {
		if matchesFilter(doc, filter) {
			matches = append(matches, doc)
		}
	}
	return decode(matches, out)
}

func matchesFilter(doc, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

// jsonEqual compares two JSON-normalized values by re-encoded byte
// equality. No direct == comparison: two interfaces holding uncomparable
// values (decoded objects or arrays) would panic.
func jsonEqual(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ab) == string(bb)
}

// toObject normalizes a Go value into a decoded JSON object so stored
// values compare consistently regardless of their original Go types.
func toObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return obj, nil
}

func decode(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

package store

import (
	"errors"
	"sync"
	"testing"
)

type testDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	in := testDoc{ID: "d1", Name: "first", Count: 3}
	if err := s.Set(ctx, "docs", "d1", in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out != in {
		t.Errorf("Get() = %+v, want %+v", out, in)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	var out testDoc
	err := s.Get(t.Context(), "docs", "nope", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SetOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "docs", "d1", testDoc{ID: "d1", Name: "old"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "docs", "d1", testDoc{ID: "d1", Name: "new"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Name != "new" {
		t.Errorf("Name = %q, want new", out.Name)
	}
}

func TestMemoryStore_Merge(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "docs", "d1", testDoc{ID: "d1", Name: "keep", Count: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Merge(ctx, "docs", "d1", map[string]any{"count": 9}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Count != 9 {
		t.Errorf("Count = %d, want 9", out.Count)
	}
	if out.Name != "keep" {
		t.Errorf("Name = %q, want untouched sibling field", out.Name)
	}
}

func TestMemoryStore_MergeMissing(t *testing.T) {
	s := NewMemoryStore()

	err := s.Merge(t.Context(), "docs", "nope", map[string]any{"count": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Merge() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_MergeReplacesNestedWholesale(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	type nested struct {
		Items []int          `json:"items"`
		Meta  map[string]any `json:"meta"`
	}
	if err := s.Set(ctx, "docs", "d1", nested{
		Items: []int{1, 2},
		Meta:  map[string]any{"a": "x", "b": "y"},
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Top-level merge semantics: a merged key replaces the old value
	// entirely, it does not deep-merge.
	if err := s.Merge(ctx, "docs", "d1", map[string]any{
		"meta": map[string]any{"a": "z"},
	}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	var out nested
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := out.Meta["b"]; ok {
		t.Error("Merge() deep-merged nested object; want wholesale replace")
	}
	if out.Meta["a"] != "z" {
		t.Errorf("Meta[a] = %v, want z", out.Meta["a"])
	}
}

func TestMemoryStore_Query(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	docs := []testDoc{
		{ID: "a", Name: "match", Count: 1},
		{ID: "b", Name: "match", Count: 2},
		{ID: "c", Name: "other", Count: 1},
	}
	for _, d := range docs {
		if err := s.Set(ctx, "docs", d.ID, d); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	var got []testDoc
	if err := s.Query(ctx, "docs", map[string]any{"name": "match"}, &got); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() returned %d docs, want 2", len(got))
	}
	for _, d := range got {
		if d.Name != "match" {
			t.Errorf("Query() returned non-matching doc %+v", d)
		}
	}
}

func TestMemoryStore_QueryMultiplePredicates(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "docs", "a", testDoc{ID: "a", Name: "x", Count: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "docs", "b", testDoc{ID: "b", Name: "x", Count: 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got []testDoc
	if err := s.Query(ctx, "docs", map[string]any{"name": "x", "count": 2}, &got); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("Query() = %+v, want only doc b", got)
	}
}

func TestMemoryStore_QueryNumericFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "docs", "a", testDoc{ID: "a", Count: 7}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Go int vs decoded float64: normalization must make them equal.
	var got []testDoc
	if err := s.Query(ctx, "docs", map[string]any{"count": 7}, &got); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query() returned %d docs, want 1", len(got))
	}
}

func TestMemoryStore_QueryStructuredFilterValue(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	type tagged struct {
		ID   string         `json:"id"`
		Meta map[string]any `json:"meta"`
	}
	if err := s.Set(ctx, "docs", "a", tagged{ID: "a", Meta: map[string]any{"k": "v"}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "docs", "b", tagged{ID: "b", Meta: map[string]any{"k": "other"}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Filter value is itself an object; comparing two decoded objects must
	// not panic and must match by encoded equality.
	var got []tagged
	if err := s.Query(ctx, "docs", map[string]any{"meta": map[string]any{"k": "v"}}, &got); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("Query() = %+v, want only doc a", got)
	}
}

func TestMemoryStore_ConcurrentMergeAndRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "docs", "d1", testDoc{ID: "d1", Name: "seed", Count: 0}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Readers encode the stored object while a writer merges into it.
	// Run under the race detector this fails if encoding happens outside
	// the store lock.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := s.Merge(ctx, "docs", "d1", map[string]any{"count": i}); err != nil {
				t.Errorf("Merge() error = %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			var out testDoc
			if err := s.Get(ctx, "docs", "d1", &out); err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			var out []testDoc
			if err := s.Query(ctx, "docs", map[string]any{"id": "d1"}, &out); err != nil {
				t.Errorf("Query() error = %v", err)
				return
			}
		}
	}()
	wg.Wait()

	var out testDoc
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Count != 199 {
		t.Errorf("Count = %d, want last merged value 199", out.Count)
	}
}

func TestMemoryStore_QueryEmptyResult(t *testing.T) {
	s := NewMemoryStore()

	var got []testDoc
	if err := s.Query(t.Context(), "docs", map[string]any{"name": "none"}, &got); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() = %+v, want empty", got)
	}
}

func TestMemoryStore_CollectionsIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	if err := s.Set(ctx, "one", "d1", testDoc{ID: "d1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "two", "d1", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() from other collection error = %v, want ErrNotFound", err)
	}
}

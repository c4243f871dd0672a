package store

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres spins up a throwaway Postgres container and returns a pool
// connected to it. Requires a local Docker daemon; skipped in short mode.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := t.Context()
	ctr, err := pgcontainer.Run(ctx, "postgres:16-alpine",
		pgcontainer.WithDatabase("docs"),
		pgcontainer.WithUsername("docs"),
		pgcontainer.WithPassword("docs"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	testcontainers.CleanupContainer(t, ctr)

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	ctx := t.Context()

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

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

	// Merge updates one key and preserves siblings.
	if err := s.Merge(ctx, "docs", "d1", map[string]any{"count": 8}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := s.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("Get() after merge error = %v", err)
	}
	if out.Count != 8 || out.Name != "first" {
		t.Errorf("after Merge got %+v, want count=8 name=first", out)
	}

	// Merge on a missing document reports not found.
	if err := s.Merge(ctx, "docs", "nope", map[string]any{"count": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Merge() missing error = %v, want ErrNotFound", err)
	}

	// Equality query via containment.
	if err := s.Set(ctx, "docs", "d2", testDoc{ID: "d2", Name: "first", Count: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var matches []testDoc
	if err := s.Query(ctx, "docs", map[string]any{"name": "first"}, &matches); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Query() returned %d docs, want 2", len(matches))
	}

	var none []testDoc
	if err := s.Query(ctx, "docs", map[string]any{"name": "absent"}, &none); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Query() returned %d docs, want 0", len(none))
	}
}

func TestPostgresStore_GetMissing(t *testing.T) {
	pool := startPostgres(t)
	ctx := t.Context()

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "docs", "missing", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should return error")
	}
}

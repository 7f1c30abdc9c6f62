package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/example/taskboard/domain/task"
)

// The postgres and redis backends need a live server. Each test resolves its
// target from the environment and skips when the service is unreachable, the
// same way the cache tests in this codebase's lineage handle a missing redis.

func setupPostgresBackend(t *testing.T) *PostgresBackend {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres backend tests")
	}

	ctx := context.Background()
	b, err := NewPostgresBackend(ctx, url)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func setupRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx := context.Background()
	b, err := NewRedisBackend(ctx, addr)
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testBackendRoundTrip(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	created := mustTask(t, "Round trip "+t.Name())
	if err := b.Insert(ctx, created); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Delete(ctx, created.ID) })

	got, err := b.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != created.Title {
		t.Errorf("Get() title = %q, want %q", got.Title, created.Title)
	}

	created.Status = task.StatusDoing
	created.Touch(time.Now())
	if err := b.Update(ctx, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err = b.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if got.Status != task.StatusDoing {
		t.Errorf("updated status = %q, want %q", got.Status, task.StatusDoing)
	}

	tasks, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	found := false
	for _, tk := range tasks {
		if tk.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Error("List() does not contain the inserted task")
	}

	if err := b.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := b.Get(ctx, created.ID); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := b.Delete(ctx, created.ID); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	testBackendRoundTrip(t, setupPostgresBackend(t))
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	testBackendRoundTrip(t, setupRedisBackend(t))
}

func TestRedisBackend_ListIndexOrder(t *testing.T) {
	b := setupRedisBackend(t)
	ctx := context.Background()

	base := time.Now().UTC()
	older := mustTask(t, "redis-order-older")
	newer := mustTask(t, "redis-order-newer")
	older.CreatedAt = base.Add(-time.Minute)
	newer.CreatedAt = base

	for _, tk := range []*task.Task{older, newer} {
		if err := b.Insert(ctx, tk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		id := tk.ID
		t.Cleanup(func() { _ = b.Delete(ctx, id) })
	}

	tasks, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	newerIdx, olderIdx := -1, -1
	for i, tk := range tasks {
		switch tk.ID {
		case newer.ID:
			newerIdx = i
		case older.ID:
			olderIdx = i
		}
	}
	if newerIdx == -1 || olderIdx == -1 {
		t.Fatal("List() missing inserted tasks")
	}
	if newerIdx > olderIdx {
		t.Errorf("List() order: newer at %d, older at %d, want newest first", newerIdx, olderIdx)
	}
}

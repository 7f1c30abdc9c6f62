package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taskboard/domain/task"
)

// setupSQLiteBackend creates an in-memory SQLite backend for testing.
func setupSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()

	b, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLiteBackend_CRUD(t *testing.T) {
	ctx := context.Background()
	b := setupSQLiteBackend(t)

	created := mustTask(t, "Review storage layer")
	created.Description = "pluggable backends"

	if err := b.Insert(ctx, created); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	t.Run("get existing", func(t *testing.T) {
		got, err := b.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != created.Title {
			t.Errorf("Get() title = %q, want %q", got.Title, created.Title)
		}
		if got.Description != created.Description {
			t.Errorf("Get() description = %q, want %q", got.Description, created.Description)
		}
		if got.Status != task.StatusTodo {
			t.Errorf("Get() status = %q, want %q", got.Status, task.StatusTodo)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := b.Get(ctx, "no-such-id"); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("update existing", func(t *testing.T) {
		created.Status = task.StatusDone
		created.Touch(time.Now())
		if err := b.Update(ctx, created); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := b.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != task.StatusDone {
			t.Errorf("Update() status = %q, want %q", got.Status, task.StatusDone)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("Update() must not rewrite created_at: got %v, want %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		ghost := mustTask(t, "Ghost")
		if err := b.Update(ctx, ghost); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete existing then missing", func(t *testing.T) {
		if err := b.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := b.Get(ctx, created.ID); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
		}
		if err := b.Delete(ctx, created.ID); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteBackend_ListOrder(t *testing.T) {
	ctx := context.Background()
	b := setupSQLiteBackend(t)

	t.Run("empty", func(t *testing.T) {
		tasks, err := b.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("List() returned %d tasks, want 0", len(tasks))
		}
	})

	base := time.Now().UTC().Truncate(time.Second)
	titles := []string{"oldest", "middle", "newest"}
	for i, title := range titles {
		tk := mustTask(t, title)
		tk.CreatedAt = base.Add(time.Duration(i) * time.Second)
		tk.UpdatedAt = tk.CreatedAt
		if err := b.Insert(ctx, tk); err != nil {
			t.Fatalf("Insert(%s) error = %v", title, err)
		}
	}

	tasks, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("List() returned %d tasks, want 3", len(tasks))
	}
	wantOrder := []string{"newest", "middle", "oldest"}
	for i, want := range wantOrder {
		if tasks[i].Title != want {
			t.Errorf("List()[%d] = %q, want %q", i, tasks[i].Title, want)
		}
	}
}

func TestSQLiteBackend_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	b := setupSQLiteBackend(t)

	tk := mustTask(t, "Contended")
	if err := b.Insert(ctx, tk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Two writers read the same base record and commit independently; the
	// backend performs no version check, so the later commit wins in full.
	a := tk.Clone()
	a.Status = task.StatusDoing
	a.Touch(time.Now())

	bWriter := tk.Clone()
	bWriter.Status = task.StatusDone
	bWriter.Touch(time.Now())

	if err := b.Update(ctx, a); err != nil {
		t.Fatalf("Update(a) error = %v", err)
	}
	if err := b.Update(ctx, bWriter); err != nil {
		t.Fatalf("Update(b) error = %v", err)
	}

	got, err := b.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != task.StatusDone {
		t.Errorf("final status = %q, want %q (last commit wins)", got.Status, task.StatusDone)
	}
}

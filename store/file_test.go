package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/taskboard/domain/task"
)

func setupFileBackend(t *testing.T) *FileBackend {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tasks.json")
	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	return b
}

func mustTask(t *testing.T, title string) *task.Task {
	t.Helper()

	tk, err := task.New(title, "", task.StatusTodo)
	if err != nil {
		t.Fatalf("task.New() error = %v", err)
	}
	return tk
}

func TestFileBackend_InsertGet(t *testing.T) {
	ctx := context.Background()
	b := setupFileBackend(t)

	created := mustTask(t, "Write tests")
	if err := b.Insert(ctx, created); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := b.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != created.Title {
		t.Errorf("Get() title = %q, want %q", got.Title, created.Title)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Get() created_at = %v, want %v", got.CreatedAt, created.CreatedAt)
	}

	t.Run("missing id", func(t *testing.T) {
		if _, err := b.Get(ctx, "no-such-id"); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate insert", func(t *testing.T) {
		if err := b.Insert(ctx, created); err == nil {
			t.Error("Insert() with duplicate id should fail")
		}
	})
}

func TestFileBackend_ListOrder(t *testing.T) {
	ctx := context.Background()
	b := setupFileBackend(t)

	first := mustTask(t, "first")
	second := mustTask(t, "second")
	third := mustTask(t, "third")
	// Force distinct creation times regardless of clock resolution.
	base := time.Now().UTC().Truncate(time.Second)
	first.CreatedAt = base
	second.CreatedAt = base.Add(time.Second)
	third.CreatedAt = base.Add(2 * time.Second)

	for _, tk := range []*task.Task{second, first, third} {
		if err := b.Insert(ctx, tk); err != nil {
			t.Fatalf("Insert(%s) error = %v", tk.Title, err)
		}
	}

	tasks, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("List() returned %d tasks, want 3", len(tasks))
	}

	wantOrder := []string{"third", "second", "first"}
	for i, want := range wantOrder {
		if tasks[i].Title != want {
			t.Errorf("List()[%d] = %q, want %q (newest-created first)", i, tasks[i].Title, want)
		}
	}
}

func TestFileBackend_Update(t *testing.T) {
	ctx := context.Background()
	b := setupFileBackend(t)

	tk := mustTask(t, "Original")
	if err := b.Insert(ctx, tk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tk.Title = "Renamed"
	tk.Status = task.StatusDoing
	tk.Touch(time.Now())
	if err := b.Update(ctx, tk); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := b.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Renamed" || got.Status != task.StatusDoing {
		t.Errorf("Update() not persisted: got %q/%q", got.Title, got.Status)
	}

	t.Run("missing id", func(t *testing.T) {
		ghost := mustTask(t, "Ghost")
		if err := b.Update(ctx, ghost); !errors.Is(err, task.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFileBackend_Delete(t *testing.T) {
	ctx := context.Background()
	b := setupFileBackend(t)

	tk := mustTask(t, "Doomed")
	if err := b.Insert(ctx, tk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := b.Delete(ctx, tk.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := b.Get(ctx, tk.ID); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := b.Delete(ctx, tk.ID); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")

	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	tk := mustTask(t, "Durable")
	if err := b.Insert(ctx, tk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// A second backend over the same path sees the committed state: the file
	// is the sole owner, nothing is cached in the process.
	reopened, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend() reopen error = %v", err)
	}
	got, err := reopened.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Title != "Durable" {
		t.Errorf("Get() after reopen title = %q, want %q", got.Title, "Durable")
	}
}

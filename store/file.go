package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/example/taskboard/domain/task"
)

// fileDocument is the on-disk layout of the flat-file backend: one JSON
// document holding every task keyed by id.
type fileDocument struct {
	Tasks map[string]*task.Task `json:"tasks"`
}

// FileBackend persists tasks in a single JSON document. Every operation
// re-reads the file so the process holds no cached copy between requests;
// writes are atomic (write-temp-then-rename) so a crash never leaves a
// half-written document. A mutex serializes access within the process.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a file backend at path, creating an empty document
// (and parent directory) if none exists.
func NewFileBackend(path string) (*FileBackend, error) {
	b := &FileBackend{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		if err := b.write(&fileDocument{Tasks: map[string]*task.Task{}}); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *FileBackend) read() (*fileDocument, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", task.ErrBackendUnavailable, b.path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt document %s: %w", task.ErrBackendUnavailable, b.path, err)
	}
	if doc.Tasks == nil {
		doc.Tasks = map[string]*task.Task{}
	}
	return &doc, nil
}

func (b *FileBackend) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}
	if err := atomic.WriteFile(b.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", task.ErrBackendUnavailable, b.path, err)
	}
	return nil
}

// Get returns the task with the given id.
func (b *FileBackend) Get(_ context.Context, id string) (*task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return nil, err
	}
	t, ok := doc.Tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	return t.Clone(), nil
}

// List returns all tasks ordered by creation time descending.
func (b *FileBackend) List(_ context.Context) ([]*task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		tasks = append(tasks, t.Clone())
	}
	sortByCreatedDesc(tasks)
	return tasks, nil
}

// Insert persists a new task.
func (b *FileBackend) Insert(_ context.Context, t *task.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return err
	}
	if _, exists := doc.Tasks[t.ID]; exists {
		return fmt.Errorf("duplicate task id %s", t.ID)
	}
	doc.Tasks[t.ID] = t.Clone()
	return b.write(doc)
}

// Update rewrites an existing task in full.
func (b *FileBackend) Update(_ context.Context, t *task.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return err
	}
	if _, exists := doc.Tasks[t.ID]; !exists {
		return task.ErrNotFound
	}
	doc.Tasks[t.ID] = t.Clone()
	return b.write(doc)
}

// Delete permanently removes a task.
func (b *FileBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return err
	}
	if _, exists := doc.Tasks[id]; !exists {
		return task.ErrNotFound
	}
	delete(doc.Tasks, id)
	return b.write(doc)
}

// Ping verifies the document is readable.
func (b *FileBackend) Ping(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.read()
	return err
}

// Close is a no-op; the file is not held open between operations.
func (b *FileBackend) Close() error {
	return nil
}

// sortByCreatedDesc orders tasks newest-created first, ties broken by id so
// the order is stable across backends.
func sortByCreatedDesc(tasks []*task.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

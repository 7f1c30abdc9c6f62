package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the workflow state of a task.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Task is the core domain entity: the unit of trackable work shared by all
// connected clients. ID and CreatedAt are immutable once assigned.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New builds a validated task with a fresh id and matching creation/update
// timestamps. Title is trimmed and must be non-empty; an empty status defaults
// to todo.
func New(title, description string, status Status) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if status == "" {
		status = StatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Touch advances UpdatedAt to now. UpdatedAt must be strictly greater after
// every successful mutation, so when the wall clock has not moved past the
// previous value the timestamp is clamped just beyond it.
func (t *Task) Touch(now time.Time) {
	now = now.UTC()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now
}

// Validate checks the record invariants on an already-built task. Used after
// merging an update patch over an existing record.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Clone returns an independent copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

package task

import (
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		status      Status
		wantErr     error
		wantTitle   string
		wantStatus  Status
	}{
		{
			name:       "valid task",
			title:      "Write spec",
			status:     StatusTodo,
			wantTitle:  "Write spec",
			wantStatus: StatusTodo,
		},
		{
			name:       "title is trimmed",
			title:      "  Ship release  ",
			wantTitle:  "Ship release",
			wantStatus: StatusTodo,
		},
		{
			name:       "empty status defaults to todo",
			title:      "Triage",
			status:     "",
			wantTitle:  "Triage",
			wantStatus: StatusTodo,
		},
		{
			name:    "empty title",
			title:   "",
			wantErr: ErrTitleRequired,
		},
		{
			name:    "whitespace only title",
			title:   "   ",
			wantErr: ErrTitleRequired,
		},
		{
			name:    "unknown status",
			title:   "Review PR",
			status:  Status("blocked"),
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := New(tt.title, tt.description, tt.status)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if task.ID == "" {
				t.Error("New() task.ID should not be empty")
			}
			if task.Title != tt.wantTitle {
				t.Errorf("New() title = %q, want %q", task.Title, tt.wantTitle)
			}
			if task.Status != tt.wantStatus {
				t.Errorf("New() status = %q, want %q", task.Status, tt.wantStatus)
			}
			if !task.CreatedAt.Equal(task.UpdatedAt) {
				t.Errorf("New() created_at = %v, updated_at = %v, want equal", task.CreatedAt, task.UpdatedAt)
			}
		})
	}
}

func TestTouch_StrictlyAdvances(t *testing.T) {
	task, err := New("Clamp check", "", StatusTodo)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	prev := task.UpdatedAt

	// Same instant as the previous update: the clamp must still move forward.
	task.Touch(prev)
	if !task.UpdatedAt.After(prev) {
		t.Errorf("Touch() updated_at = %v, want strictly after %v", task.UpdatedAt, prev)
	}

	// A clock that moved backwards must not rewind the record.
	task.Touch(prev.Add(-time.Hour))
	if !task.UpdatedAt.After(prev) {
		t.Errorf("Touch() with past clock rewound updated_at to %v", task.UpdatedAt)
	}

	// Normal case: clock advanced.
	future := task.UpdatedAt.Add(time.Second)
	task.Touch(future)
	if !task.UpdatedAt.Equal(future) {
		t.Errorf("Touch() updated_at = %v, want %v", task.UpdatedAt, future)
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusTodo, StatusDoing, StatusDone} {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false, want true", s)
		}
	}
	for _, s := range []Status{"", "pending", "TODO", "archived"} {
		if s.Valid() {
			t.Errorf("Status(%q).Valid() = true, want false", s)
		}
	}
}

func TestValidate_AfterPatchMerge(t *testing.T) {
	task, err := New("Original", "", StatusDoing)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	task.Title = "   "
	if !errors.Is(task.Validate(), ErrTitleRequired) {
		t.Error("Validate() should reject blank title")
	}

	task.Title = "Patched"
	task.Status = Status("nonsense")
	if !errors.Is(task.Validate(), ErrInvalidStatus) {
		t.Error("Validate() should reject unknown status")
	}

	task.Status = StatusDone
	if err := task.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

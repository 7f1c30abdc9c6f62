package task

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
)

// createTask handles the task.create service request.
func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	newTask, err := domain.New(req.Title, req.Description, domain.Status(req.Status))
	if err != nil {
		return TaskResponse{}, err
	}

	if err := m.backend.Insert(ctx, newTask); err != nil {
		return TaskResponse{}, fmt.Errorf("failed to save task: %w", err)
	}

	m.publishCreated(newTask)
	return toTaskResponse(newTask), nil
}

// getTask handles the task.get service request.
func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if req.TaskID == "" {
		return TaskResponse{}, domain.ErrNotFound
	}
	t, err := m.backend.Get(ctx, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t), nil
}

// listTasks handles the task.list service request. Tasks are ordered by
// creation time descending.
func (m *TaskModule) listTasks(ctx context.Context, _ ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.backend.List(ctx)
	if err != nil {
		return ListTasksResponse{}, err
	}

	response := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, t := range tasks {
		response.Tasks = append(response.Tasks, toTaskResponse(t))
	}
	return response, nil
}

// updateTask handles the task.update service request.
//
// The patch is merged over a fresh read of the stored record and the whole
// record is rewritten with no version check. Two concurrent updates to the
// same id therefore both succeed and the later commit wins in full — a
// deliberate last-write-wins policy that connected clients depend on, not a
// race to be fixed here.
func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if req.TaskID == "" {
		return TaskResponse{}, domain.ErrNotFound
	}

	t, err := m.backend.Get(ctx, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		// An explicit empty status falls back to the default, same as create.
		if *req.Status == "" {
			t.Status = domain.StatusTodo
		} else {
			t.Status = domain.Status(*req.Status)
		}
	}
	if err := t.Validate(); err != nil {
		return TaskResponse{}, err
	}
	t.Touch(time.Now())

	if err := m.backend.Update(ctx, t); err != nil {
		return TaskResponse{}, fmt.Errorf("failed to update task: %w", err)
	}

	m.publishUpdated(t)
	return toTaskResponse(t), nil
}

// deleteTask handles the task.delete service request.
func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if req.TaskID == "" {
		return DeleteTaskResponse{Deleted: false}, domain.ErrNotFound
	}

	if err := m.backend.Delete(ctx, req.TaskID); err != nil {
		return DeleteTaskResponse{Deleted: false, ID: req.TaskID}, err
	}

	m.publishDeleted(req.TaskID)
	return DeleteTaskResponse{Deleted: true, ID: req.TaskID}, nil
}

// Event publication is best-effort and happens only after the backend commit:
// a mutation either fully commits (and then notifies) or fully fails with no
// persisted change. A publish failure never surfaces to the mutating caller.

func (m *TaskModule) publishCreated(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskCreated event for task %s: %v", t.ID, err)
	}
}

func (m *TaskModule) publishUpdated(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskUpdated event for task %s: %v", t.ID, err)
	}
}

func (m *TaskModule) publishDeleted(taskID string) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    taskID,
		DeletedAt: time.Now().UTC(),
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event for task %s: %v", taskID, err)
	}
}

// toTaskResponse converts a domain Task to a TaskResponse.
func toTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

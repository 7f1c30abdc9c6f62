package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/taskboard/domain/task"
)

// taskAdapter wraps the ServiceContainer for type-safe cross-module calls.
// It implements the TaskPort interface.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the task module's ServiceContainer received via
// SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// mapServiceError restores the domain error taxonomy on the calling side.
// Service errors cross the bus as strings, so sentinel identity is lost in
// transit; matching the sentinel text is the only way to give callers back
// errors.Is semantics.
func mapServiceError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrNotFound,
		domain.ErrTitleRequired,
		domain.ErrInvalidStatus,
		domain.ErrBackendUnavailable,
	} {
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%w: %s", sentinel, msg)
		}
	}
	return err
}

// CreateTask creates a new task via the task.create service.
func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error) {
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "create", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, mapServiceError(err)
	}
	return &resp, nil
}

// GetTask retrieves a task by id via the task.get service.
func (a *taskAdapter) GetTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	req := GetTaskRequest{TaskID: taskID}
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, mapServiceError(err)
	}
	return &resp, nil
}

// ListTasks lists all tasks via the task.list service.
func (a *taskAdapter) ListTasks(ctx context.Context) (*ListTasksResponse, error) {
	req := ListTasksRequest{}
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "list", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, mapServiceError(err)
	}
	return &resp, nil
}

// UpdateTask updates a task via the task.update service.
func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error) {
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "update", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, mapServiceError(err)
	}
	return &resp, nil
}

// DeleteTask deletes a task via the task.delete service.
func (a *taskAdapter) DeleteTask(ctx context.Context, taskID string) error {
	req := DeleteTaskRequest{TaskID: taskID}
	var resp DeleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "delete", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return mapServiceError(err)
	}
	if !resp.Deleted {
		return domain.ErrNotFound
	}
	return nil
}

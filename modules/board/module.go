// Package board keeps a live, read-only view of the task list inside the
// process. It is an observer like any websocket client: every change event it
// consumes triggers a full refetch through the task service, never an
// incremental patch.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/task"
	"github.com/example/taskboard/pkg/reconciler"
)

// BoardModule maintains a reconciler-backed snapshot of all tasks and serves
// it via the board.snapshot request-reply service.
type BoardModule struct {
	taskPort task.TaskPort
	view     *reconciler.Reconciler
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*BoardModule)(nil)
	_ mono.ServiceProviderModule = (*BoardModule)(nil)
	_ mono.DependentModule       = (*BoardModule)(nil)
	_ mono.EventConsumerModule   = (*BoardModule)(nil)
)

// NewModule creates a new BoardModule.
func NewModule() *BoardModule {
	return &BoardModule{}
}

// NewModuleWithLister creates a BoardModule over a custom list source.
// This constructor enables dependency injection for testing.
func NewModuleWithLister(lister reconciler.Lister) *BoardModule {
	return &BoardModule{
		view: reconciler.New(lister),
	}
}

// Name returns the module name.
func (m *BoardModule) Name() string {
	return "board"
}

// Dependencies returns the list of module dependencies.
func (m *BoardModule) Dependencies() []string {
	return []string{"task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *BoardModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "task" {
		m.taskPort = task.NewTaskAdapter(container)
	}
}

// RegisterEventConsumers subscribes to the task change events. Each handler
// discards the event payload beyond logging: the task id inside an event is
// not trusted as a patch, the refetch result is.
func (m *BoardModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCreatedV1, m.handleTaskCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskUpdatedV1, m.handleTaskUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskDeletedV1, m.handleTaskDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	log.Println("[board] Registered event consumers: TaskCreated, TaskUpdated, TaskDeleted")
	return nil
}

func (m *BoardModule) handleTaskCreated(ctx context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	return m.refresh(ctx, "created", event.TaskID)
}

func (m *BoardModule) handleTaskUpdated(ctx context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	return m.refresh(ctx, "updated", event.TaskID)
}

func (m *BoardModule) handleTaskDeleted(ctx context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	return m.refresh(ctx, "deleted", event.TaskID)
}

func (m *BoardModule) refresh(ctx context.Context, kind, taskID string) error {
	if err := m.view.Refresh(ctx); err != nil {
		// The stale view stays in place; the next event triggers another
		// attempt.
		log.Printf("[board] Refetch after %s event for task %s failed: %v", kind, taskID, err)
		return nil
	}
	log.Printf("[board] View refreshed after %s event (%d tasks)", kind, m.view.Len())
	return nil
}

// RegisterServices registers the read-only snapshot service.
func (m *BoardModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "snapshot", json.Unmarshal, json.Marshal, m.snapshot,
	); err != nil {
		return fmt.Errorf("failed to register snapshot service: %w", err)
	}

	log.Printf("[board] Registered services: services.board.snapshot")
	return nil
}

// SnapshotRequest is the request for the board snapshot.
type SnapshotRequest struct{}

// SnapshotResponse is the board's current view of all tasks.
type SnapshotResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
}

func (m *BoardModule) snapshot(_ context.Context, _ SnapshotRequest, _ *mono.Msg) (SnapshotResponse, error) {
	tasks := m.view.Snapshot()
	return SnapshotResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// Start wires the reconciler to the task service and loads the initial view.
// An unreachable backend at boot is not fatal: the view starts empty and the
// first change event fills it.
func (m *BoardModule) Start(ctx context.Context) error {
	if m.view == nil {
		if m.taskPort == nil {
			return fmt.Errorf("taskPort dependency not set")
		}
		m.view = reconciler.New(reconciler.ListerFunc(m.listThroughPort))
	}

	if err := m.view.Refresh(ctx); err != nil {
		log.Printf("[board] Warning: initial task fetch failed: %v", err)
	} else {
		log.Printf("[board] Module started with %d tasks in view", m.view.Len())
	}
	return nil
}

// listThroughPort adapts the task port to the reconciler's Lister.
func (m *BoardModule) listThroughPort(ctx context.Context) ([]domain.Task, error) {
	resp, err := m.taskPort.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(resp.Tasks))
	for _, tr := range resp.Tasks {
		tasks = append(tasks, domain.Task{
			ID:          tr.ID,
			Title:       tr.Title,
			Description: tr.Description,
			Status:      domain.Status(tr.Status),
			CreatedAt:   tr.CreatedAt,
			UpdatedAt:   tr.UpdatedAt,
		})
	}
	return tasks, nil
}

// Stop releases nothing; the view is plain memory.
func (m *BoardModule) Stop(_ context.Context) error {
	log.Println("[board] Module stopped")
	return nil
}

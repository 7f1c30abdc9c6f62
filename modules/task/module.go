package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/taskboard/events"
	"github.com/example/taskboard/store"
)

// TaskModule owns canonical task state. It is the only writer: every mutation
// validates, commits to the storage backend, then best-effort publishes a
// change event on the bus.
type TaskModule struct {
	backend  store.Backend
	storeCfg store.Config
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.EventEmitterModule    = (*TaskModule)(nil)
	_ mono.HealthCheckableModule = (*TaskModule)(nil)
)

// NewModule creates a TaskModule that opens its storage backend from the
// environment on Start (STORE_BACKEND selects file, sqlite, postgres or redis).
func NewModule() *TaskModule {
	return &TaskModule{
		storeCfg: store.ConfigFromEnv(),
	}
}

// NewModuleWithBackend creates a TaskModule over an already-open backend.
// This constructor enables dependency injection for testing.
func NewModuleWithBackend(backend store.Backend) *TaskModule {
	return &TaskModule{
		backend:  backend,
		storeCfg: store.Config{Backend: "injected"},
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetEventBus receives the event bus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the change events this module publishes.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// RegisterServices registers the request-reply services in the container.
// The framework prefixes names with "services.task." on the wire.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}

	log.Printf("[task] Registered services: services.task.{create,get,list,update,delete}")
	return nil
}

// Start opens the storage backend and verifies it is reachable.
func (m *TaskModule) Start(ctx context.Context) error {
	if m.backend == nil {
		log.Printf("[task] Opening %s storage backend", m.storeCfg.Backend)
		backend, err := store.Open(ctx, m.storeCfg)
		if err != nil {
			return fmt.Errorf("failed to open storage backend: %w", err)
		}
		m.backend = backend
	}

	if err := m.backend.Ping(ctx); err != nil {
		return fmt.Errorf("storage backend not reachable: %w", err)
	}

	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, change events will not be published")
	}
	log.Println("[task] Module started")
	return nil
}

// Stop closes the storage backend.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.backend != nil {
		if err := m.backend.Close(); err != nil {
			return fmt.Errorf("failed to close storage backend: %w", err)
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health reports whether the storage backend answers a ping.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.backend == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "storage backend not initialized",
		}
	}
	if err := m.backend.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("storage backend ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": m.storeCfg.Backend,
		},
	}
}

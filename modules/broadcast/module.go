package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/taskboard/events"
)

// BroadcastModule is the change notifier. It consumes task change events from
// the bus and fans them out through the hub to every connected observer.
// Delivery failures stay inside this module; the mutating caller has already
// received its response by the time an event reaches the hub.
type BroadcastModule struct {
	hub *Hub
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*BroadcastModule)(nil)
	_ mono.EventConsumerModule   = (*BroadcastModule)(nil)
	_ mono.HealthCheckableModule = (*BroadcastModule)(nil)
)

// NewModule creates a new BroadcastModule with its own hub.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// GetHub exposes the observer registry for the API module to register
// websocket connections against.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// RegisterEventConsumers subscribes to the task change events.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
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

	log.Println("[broadcast] Registered event consumers: TaskCreated, TaskUpdated, TaskDeleted")
	return nil
}

func (m *BroadcastModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.hub.Publish(Event{Type: TypeTaskCreated, TaskID: event.TaskID, At: time.Now().UTC()})
	return nil
}

func (m *BroadcastModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.hub.Publish(Event{Type: TypeTaskUpdated, TaskID: event.TaskID, At: time.Now().UTC()})
	return nil
}

func (m *BroadcastModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.hub.Publish(Event{Type: TypeTaskDeleted, TaskID: event.TaskID, At: time.Now().UTC()})
	return nil
}

// Start marks the module ready. The hub needs no background loop; publish
// fans out synchronously with non-blocking sends.
func (m *BroadcastModule) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - observer hub ready")
	return nil
}

// Stop disconnects every observer.
func (m *BroadcastModule) Stop(_ context.Context) error {
	count := m.hub.Count()
	m.hub.Close()
	log.Printf("[broadcast] Module stopped - %d observers were connected", count)
	return nil
}

// Health reports the hub state.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_observers": m.hub.Count(),
			"dropped_events":      m.hub.Dropped(),
		},
	}
}

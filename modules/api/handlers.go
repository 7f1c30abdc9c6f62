package api

import (
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/modules/task"
)

// healthHandler reports liveness plus current observer count.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"observers": m.hub.Count(),
	})
}

// createTask handles POST /api/v1/tasks.
func (m *APIModule) createTask(c *fiber.Ctx) error {
	var body CreateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_body",
			Message: "request body must be valid JSON",
		})
	}

	resp, err := m.taskPort.CreateTask(c.Context(), &task.CreateTaskRequest{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		return m.taskError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTaskView(resp))
}

// getTask handles GET /api/v1/tasks/:id.
func (m *APIModule) getTask(c *fiber.Ctx) error {
	resp, err := m.taskPort.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return m.taskError(c, err)
	}
	return c.JSON(toTaskView(resp))
}

// listTasks handles GET /api/v1/tasks. The body is the task array itself,
// not an envelope around it.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	resp, err := m.taskPort.ListTasks(c.Context())
	if err != nil {
		return m.taskError(c, err)
	}
	views := make([]TaskView, 0, len(resp.Tasks))
	for i := range resp.Tasks {
		views = append(views, toTaskView(&resp.Tasks[i]))
	}
	return c.JSON(views)
}

// updateTask handles PUT /api/v1/tasks/:id.
func (m *APIModule) updateTask(c *fiber.Ctx) error {
	var body UpdateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_body",
			Message: "request body must be valid JSON",
		})
	}

	resp, err := m.taskPort.UpdateTask(c.Context(), &task.UpdateTaskRequest{
		TaskID:      c.Params("id"),
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		return m.taskError(c, err)
	}
	return c.JSON(toTaskView(resp))
}

// deleteTask handles DELETE /api/v1/tasks/:id.
func (m *APIModule) deleteTask(c *fiber.Ctx) error {
	if err := m.taskPort.DeleteTask(c.Context(), c.Params("id")); err != nil {
		return m.taskError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// taskError maps repository errors to HTTP status codes.
func (m *APIModule) taskError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "task not found",
		})
	case errors.Is(err, domain.ErrTitleRequired), errors.Is(err, domain.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrBackendUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "backend_unavailable",
			Message: "storage backend unavailable",
		})
	default:
		log.Printf("[api] unexpected task error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "internal server error",
		})
	}
}

// handleObserver serves a websocket connection as a change observer. Each
// connection gets its own hub subscription; a slow or stuck connection only
// loses its own events, never anyone else's.
func (m *APIModule) handleObserver(conn *websocket.Conn) {
	obs := m.hub.Subscribe()
	if obs == nil {
		// Hub already closed, server is shutting down.
		conn.Close()
		return
	}
	defer m.hub.Unsubscribe(obs)

	log.Printf("[api] observer %s connected", obs.ID())

	// Writer: drain hub events to the socket. Exits when the hub closes
	// the channel on unsubscribe or shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range obs.Events() {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}()

	// Read loop exists only to detect disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	m.hub.Unsubscribe(obs)
	<-done
	log.Printf("[api] observer %s disconnected", obs.ID())
}

// toTaskView converts a task service response to its JSON view.
func toTaskView(t *task.TaskResponse) TaskView {
	return TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

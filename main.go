package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/taskboard/modules/api"
	"github.com/example/taskboard/modules/board"
	"github.com/example/taskboard/modules/broadcast"
	"github.com/example/taskboard/modules/task"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Taskboard - shared task tracker ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	taskModule := task.NewModule()
	broadcastModule := broadcast.NewModule()
	boardModule := board.NewModule()
	apiModule := api.NewModule()

	// Inject broadcast hub into API module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - task: Core repository (ServiceProviderModule + EventEmitterModule)
	// - broadcast: Event consumer feeding WebSocket observers
	// - board: Event consumer keeping a reconciled snapshot (depends on task)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on task)
	app.Register(taskModule)
	app.Register(broadcastModule)
	app.Register(boardModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "file"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Printf("  - Storage backend: %s (STORE_BACKEND: file|sqlite|postgres|redis)", backend)
	log.Println("")
	log.Println("Event flow:")
	log.Println("  - TaskCreated/TaskUpdated/TaskDeleted -> broadcast module -> WebSocket observers")
	log.Println("  - Same events -> board module -> full list refetch (no incremental patching)")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health             - Health check")
	log.Println("  GET    /api/v1/tasks       - List all tasks (newest first)")
	log.Println("  POST   /api/v1/tasks       - Create a task")
	log.Println("  GET    /api/v1/tasks/:id   - Get one task")
	log.Println("  PUT    /api/v1/tasks/:id   - Update a task (partial, last write wins)")
	log.Println("  DELETE /api/v1/tasks/:id   - Delete a task")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Emits change notifications: task:created, task:updated, task:deleted")
	log.Println("  Observers should refetch the task list on any event")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

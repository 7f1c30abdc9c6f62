package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/taskboard/domain/task"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    id          VARCHAR(36) PRIMARY KEY,
    title       VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status      VARCHAR(16) NOT NULL DEFAULT 'todo',
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at DESC);
`

// pgConnectTimeout bounds pool creation and the startup ping so an
// unreachable database surfaces as ErrBackendUnavailable instead of hanging.
const pgConnectTimeout = 5 * time.Second

// PostgresBackend stores tasks in PostgreSQL through a pgx connection pool.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend connects to the database at url and bootstraps the
// tasks table.
func NewPostgresBackend(ctx context.Context, url string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	cfg.ConnConfig.ConnectTimeout = pgConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to bootstrap tasks table: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return &t, nil
}

// Get returns the task with the given id.
func (b *PostgresBackend) Get(ctx context.Context, id string) (*task.Task, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT id, title, description, status, created_at, updated_at FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// List returns all tasks ordered by creation time descending.
func (b *PostgresBackend) List(ctx context.Context) ([]*task.Task, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT id, title, description, status, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	return tasks, nil
}

// Insert persists a new task.
func (b *PostgresBackend) Insert(ctx context.Context, t *task.Task) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Title, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Update rewrites an existing task in full. The last commit wins when two
// writers race on one id; no row version is checked.
func (b *PostgresBackend) Update(ctx context.Context, t *task.Task) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, updated_at = $5 WHERE id = $1`,
		t.ID, t.Title, t.Description, string(t.Status), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Delete permanently removes a task.
func (b *PostgresBackend) Delete(ctx context.Context, id string) error {
	tag, err := b.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Ping verifies the database connection.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

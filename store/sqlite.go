package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/taskboard/domain/task"
)

// taskRecord is the GORM mapping of the task entity. Timestamps are owned by
// the repository layer, so GORM's automatic time tracking is disabled.
type taskRecord struct {
	ID          string    `gorm:"primarykey;size:36"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"size:2000"`
	Status      string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

// TableName returns the table name for the task record.
func (taskRecord) TableName() string {
	return "tasks"
}

func toRecord(t *task.Task) *taskRecord {
	return &taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *taskRecord) toTask() *task.Task {
	return &task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      task.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SQLiteBackend stores tasks in a SQLite database through GORM.
type SQLiteBackend struct {
	db *gorm.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend opens (or creates) the database at path and runs the
// schema migration.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", task.ErrBackendUnavailable, path, err)
	}
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Get returns the task with the given id.
func (b *SQLiteBackend) Get(ctx context.Context, id string) (*task.Task, error) {
	var rec taskRecord
	if err := b.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return rec.toTask(), nil
}

// List returns all tasks ordered by creation time descending.
func (b *SQLiteBackend) List(ctx context.Context) ([]*task.Task, error) {
	var recs []taskRecord
	if err := b.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toTask())
	}
	return tasks, nil
}

// Insert persists a new task.
func (b *SQLiteBackend) Insert(ctx context.Context, t *task.Task) error {
	if err := b.db.WithContext(ctx).Create(toRecord(t)).Error; err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Update rewrites an existing task in full.
func (b *SQLiteBackend) Update(ctx context.Context, t *task.Task) error {
	result := b.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", t.ID).
		Select("title", "description", "status", "updated_at").
		Updates(toRecord(t))
	if err := result.Error; err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if result.RowsAffected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Delete permanently removes a task.
func (b *SQLiteBackend) Delete(ctx context.Context, id string) error {
	result := b.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if result.RowsAffected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Ping verifies the database connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

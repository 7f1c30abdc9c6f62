package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/taskboard/domain/task"
)

const (
	redisKeyPrefix = "task:"
	redisIndexKey  = "tasks:by-created"

	redisDialTimeout = 5 * time.Second
	redisOpTimeout   = 3 * time.Second
)

// RedisBackend stores each task as a JSON value under task:<id> and keeps a
// sorted set indexed by creation time (unix nanoseconds) so List can return
// tasks newest-first without scanning the keyspace.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to the redis instance at addr.
func NewRedisBackend(ctx context.Context, addr string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", task.ErrBackendUnavailable, addr, err)
	}
	return &RedisBackend{client: client}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get returns the task with the given id.
func (b *RedisBackend) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := b.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	var t task.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("corrupt task record %s: %w", id, err)
	}
	return &t, nil
}

// List returns all tasks ordered by creation time descending.
func (b *RedisBackend) List(ctx context.Context) ([]*task.Task, error) {
	ids, err := b.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	tasks := make([]*task.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record: a concurrent delete won the race.
			continue
		}
		var t task.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("corrupt task record: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// Insert persists a new task and adds it to the creation-time index.
func (b *RedisBackend) Insert(ctx context.Context, t *task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, redisKey(t.ID), data, 0)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(t.CreatedAt.UnixNano()),
		Member: t.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Update rewrites an existing task in full. The existence check and the write
// are separate commands, so two racing updates to one id both succeed and the
// later SET wins.
func (b *RedisBackend) Update(ctx context.Context, t *task.Task) error {
	exists, err := b.client.Exists(ctx, redisKey(t.ID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if exists == 0 {
		return task.ErrNotFound
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := b.client.Set(ctx, redisKey(t.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Delete permanently removes a task and its index entry.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	removed, err := b.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	if removed == 0 {
		return task.ErrNotFound
	}
	if err := b.client.ZRem(ctx, redisIndexKey, id).Err(); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Ping verifies the redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", task.ErrBackendUnavailable, err)
	}
	return nil
}

// Close closes the redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

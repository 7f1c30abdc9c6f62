package task

import "errors"

var (
	// ErrNotFound indicates the task does not exist in the store.
	ErrNotFound = errors.New("task not found")
	// ErrTitleRequired indicates an empty title after trimming.
	ErrTitleRequired = errors.New("title is required")
	// ErrInvalidStatus indicates a status outside todo/doing/done.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrBackendUnavailable indicates the storage backend is unreachable.
	// The condition is transient; retry policy belongs to the caller.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

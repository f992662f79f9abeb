package task

import "errors"

// Common errors returned by the task package
var (
	// ErrInsufficientBalance is returned when the balance cannot cover a task
	// before any backend call is made.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerRejected is returned when the atomic deduction fails after
	// content was generated. The generated content is discarded.
	ErrLedgerRejected = errors.New("credit deduction rejected")

	// ErrEmptyResult is returned when a backend succeeds without producing content.
	ErrEmptyResult = errors.New("generation produced no content")

	// ErrUnauthenticated is returned when a task has no principal or the
	// principal does not own the project it targets.
	ErrUnauthenticated = errors.New("principal is not authenticated for this project")

	// ErrUnknownKind is returned when no executor is registered for a kind.
	ErrUnknownKind = errors.New("unknown task kind")

	// ErrQueueClosed is returned when enqueueing into a stopped queue.
	ErrQueueClosed = errors.New("task queue is closed")
)

package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/reelsmith-api/internal/budget"
)

// Sentinel errors returned by the services. The API layer maps them to
// HTTP status codes.
var (
	// ErrNotOwned indicates the project belongs to another principal.
	ErrNotOwned = errors.New("resource is owned by another principal")

	// ErrOutOfCredits is the hard stop: the balance cannot pay for a single unit.
	ErrOutOfCredits = errors.New("out of credits")

	// ErrConfirmationRequired means only part of the batch is affordable and
	// the caller has not confirmed the clipped batch.
	ErrConfirmationRequired = errors.New("only part of the batch is affordable")

	// ErrInvalidRequest indicates a malformed generation request.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrItemNotInProject indicates a requested item is not part of the project.
	ErrItemNotInProject = errors.New("item does not belong to the project")

	// ErrNothingToGenerate indicates the request selected no items.
	ErrNothingToGenerate = errors.New("no items to generate")
)

// PlanError carries the budget plan alongside ErrOutOfCredits or
// ErrConfirmationRequired, so callers can show the dialog it calls for.
type PlanError struct {
	Plan budget.Result
	Err  error
}

// Error implements the error interface for PlanError.
func (e *PlanError) Error() string {
	return fmt.Sprintf("%v: %d of %d affordable (%d available, %d per unit)",
		e.Err, e.Plan.AffordableCount, e.Plan.Requested, e.Plan.Available, e.Plan.CostPerUnit)
}

// Unwrap returns the wrapped sentinel.
func (e *PlanError) Unwrap() error {
	return e.Err
}

// ServiceError wraps unexpected failures with the operation that hit them.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) error {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

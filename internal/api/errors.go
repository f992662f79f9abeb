package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/reelsmith-api/internal/api/shared"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/service"
	"github.com/phrazzld/reelsmith-api/internal/service/auth"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case auth.IsAuthError(err), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrOutOfCredits):
		return http.StatusPaymentRequired

	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrItemNotInProject),
		errors.Is(err, service.ErrNothingToGenerate),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this project"
	case errors.Is(err, store.ErrProjectNotFound):
		return "Project not found"
	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, service.ErrOutOfCredits):
		return "Not enough credits for this batch"
	case errors.Is(err, service.ErrConfirmationRequired):
		return "Only part of this batch is affordable; confirm to continue"
	case errors.Is(err, service.ErrItemNotInProject):
		return "Item does not belong to this project"
	case errors.Is(err, service.ErrNothingToGenerate):
		return "Project has no items to generate"
	case errors.Is(err, task.ErrUnknownKind):
		return "Unsupported generation kind"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID format"
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	case errors.Is(err, task.ErrQueueClosed):
		return "Generation queue is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. message overrides the safe
// default message for the mapped status when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns a validator error into a short message that
// names the failing field without echoing the input.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		// Key: 'GenerationRequest.Kind' Error:Field validation for 'Kind' failed on the 'oneof' tag
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				if len(fieldParts) >= 5 {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fieldParts[3]))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid ID format"
	default:
		return "validation failed"
	}
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/api/shared"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
)

// getPathUUID parses the chi path parameter paramName as a UUID.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	param := chi.URLParam(r, paramName)
	if param == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// getQueryUUID parses the query parameter name as a UUID.
func getQueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	param := r.URL.Query().Get(name)
	if param == "" {
		return uuid.Nil, domain.NewValidationError(name, "is required", domain.ErrValidation)
	}
	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// getQueryInt parses the optional query parameter name, returning def when
// it is absent.
func getQueryInt(r *http.Request, name string, def int) (int, error) {
	param := r.URL.Query().Get(name)
	if param == "" {
		return def, nil
	}
	n, err := strconv.Atoi(param)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", domain.ErrValidation)
	}
	return n, nil
}

// requirePrincipal returns the authenticated principal, writing a 401 when
// the request carries none.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	principalID, ok := shared.GetPrincipalID(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("principal ID not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, false
	}
	return principalID, true
}

// handlePrincipalAndPathUUID combines requirePrincipal and getPathUUID,
// writing the error response when either fails.
func handlePrincipalAndPathUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, uuid.UUID, bool) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		logger.FromContext(r.Context()).Warn("invalid path parameter",
			"param_name", paramName,
			"value", chi.URLParam(r, paramName))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}
	return principalID, pathID, true
}

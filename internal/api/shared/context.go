package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped values set by the API layer.
type ContextKey string

const (
	// PrincipalIDContextKey holds the authenticated principal's ID.
	PrincipalIDContextKey ContextKey = "principalID"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID returns ctx carrying a fresh trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID of ctx, or "" if none was set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithPrincipalID returns ctx carrying the authenticated principal.
func WithPrincipalID(ctx context.Context, principalID uuid.UUID) context.Context {
	return context.WithValue(ctx, PrincipalIDContextKey, principalID)
}

// GetPrincipalID returns the authenticated principal of ctx. The zero UUID
// counts as missing.
func GetPrincipalID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(PrincipalIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// newTraceID returns 32 hex characters.
func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

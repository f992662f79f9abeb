package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
)

// ProjectStore defines read access to projects.
type ProjectStore interface {
	// GetProject retrieves a project and its current settings by ID,
	// without items. Returns ErrProjectNotFound if it does not exist.
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

// ProfileStore defines read access to principal billing profiles.
type ProfileStore interface {
	// GetProfile retrieves the profile of a principal.
	// Returns ErrProfileNotFound if the principal has none.
	GetProfile(ctx context.Context, principalID uuid.UUID) (*domain.Profile, error)
}

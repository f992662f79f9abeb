package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
)

// ItemFields is a partial item record. Nil fields are left untouched by
// SetStatus; a non-nil Thumbnails slice replaces the stored list.
type ItemFields struct {
	Status      *domain.GenerationStatus
	Error       *string
	Script      *string
	ThumbStatus *domain.GenerationStatus
	ThumbError  *string
	ThumbPrompt *string
	Thumbnails  []string
}

// IsEmpty reports whether the update carries no fields.
func (f ItemFields) IsEmpty() bool {
	return f.Status == nil && f.Error == nil && f.Script == nil &&
		f.ThumbStatus == nil && f.ThumbError == nil && f.ThumbPrompt == nil &&
		f.Thumbnails == nil
}

// ItemStore defines the persistence operations the task queue needs on items.
type ItemStore interface {
	// GetItem retrieves an item by ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// ListItems returns the items of a project in creation order.
	ListItems(ctx context.Context, projectID uuid.UUID) ([]domain.Item, error)

	// SetStatus applies a partial update to an item and bumps its update time.
	// Returns ErrItemNotFound if the item does not exist and ErrEmptyUpdate
	// when fields carries nothing to write.
	SetStatus(ctx context.Context, id uuid.UUID, fields ItemFields) error

	// FailInterrupted marks scripts and thumbnails that have been
	// "generating" for longer than olderThan as failed with the given
	// message, leaving the items in skip untouched. It returns the number
	// of items changed.
	FailInterrupted(ctx context.Context, olderThan time.Duration, message string, skip []uuid.UUID) (int64, error)
}

// StatusPtr returns a pointer to s, for building ItemFields.
func StatusPtr(s domain.GenerationStatus) *domain.GenerationStatus {
	return &s
}

// StringPtr returns a pointer to s, for building ItemFields.
func StringPtr(s string) *string {
	return &s
}

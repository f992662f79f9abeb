package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus is the persisted processing state of one generated
// artifact (script or thumbnails) of an item.
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusIdle       GenerationStatus = "idle"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Validation errors for Item
var (
	ErrEmptyItemID        = errors.New("item ID cannot be empty")
	ErrEmptyItemProjectID = errors.New("item project ID cannot be empty")
	ErrEmptyItemTitle     = errors.New("item title cannot be empty")
)

// Item is a single content unit (one video idea) inside a project. Scripts
// and thumbnails are produced for it by background tasks, which mirror their
// progress into Status and ThumbStatus.
type Item struct {
	ID          uuid.UUID        `json:"id"`
	ProjectID   uuid.UUID        `json:"project_id"`
	Title       string           `json:"title"`
	Script      string           `json:"script,omitempty"`
	Status      GenerationStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	Thumbnails  []string         `json:"thumbnails,omitempty"`
	ThumbStatus GenerationStatus `json:"thumb_status"`
	ThumbPrompt string           `json:"thumb_prompt,omitempty"`
	ThumbError  string           `json:"thumb_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewItem creates a new idle Item with the given project ID and title.
func NewItem(projectID uuid.UUID, title string) (*Item, error) {
	now := time.Now().UTC()
	item := &Item{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Title:       title,
		Status:      GenerationStatusIdle,
		ThumbStatus: GenerationStatusIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}
	if i.ProjectID == uuid.Nil {
		return ErrEmptyItemProjectID
	}
	if i.Title == "" {
		return ErrEmptyItemTitle
	}
	if !IsValidGenerationStatus(i.Status) || !IsValidGenerationStatus(i.ThumbStatus) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidGenerationStatus checks if the given status is a known GenerationStatus.
func IsValidGenerationStatus(status GenerationStatus) bool {
	switch status {
	case GenerationStatusIdle, GenerationStatusGenerating,
		GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultDurationMinutes is the target video length used when a project
// has not configured one.
const DefaultDurationMinutes = 10

// Validation errors for Project
var (
	ErrEmptyProjectID      = errors.New("project ID cannot be empty")
	ErrEmptyProjectOwnerID = errors.New("project owner ID cannot be empty")
	ErrEmptyProjectName    = errors.New("project name cannot be empty")
)

// ProjectSettings holds the global generation settings of a project. They are
// read at execution time, not at enqueue time, so edits made while a batch is
// queued apply to the tasks that have not started yet.
type ProjectSettings struct {
	Niche           string `json:"niche"`
	Tone            string `json:"tone"`
	Structure       string `json:"structure"`
	DurationMinutes int    `json:"duration_minutes"`
	Template        string `json:"template"`
}

// EffectiveDuration returns the configured duration or DefaultDurationMinutes.
func (s ProjectSettings) EffectiveDuration() int {
	if s.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return s.DurationMinutes
}

// Project groups the content items a principal is producing for one channel
// or series, together with the settings shared by all of them.
type Project struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Settings  ProjectSettings `json:"settings"`
	Items     []Item          `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}
	if p.OwnerID == uuid.Nil {
		return ErrEmptyProjectOwnerID
	}
	if p.Name == "" {
		return ErrEmptyProjectName
	}
	return nil
}

// FindItem returns the project's item with the given ID, if loaded.
func (p *Project) FindItem(id uuid.UUID) (Item, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// OwnedBy reports whether the project belongs to the given principal.
func (p *Project) OwnedBy(principalID uuid.UUID) bool {
	return principalID != uuid.Nil && p.OwnerID == principalID
}

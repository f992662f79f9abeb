package task

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind selects the executor that runs a task.
type Kind string

// Known task kinds
const (
	KindScript    Kind = "script"
	KindThumbnail Kind = "thumbnail"
)

// Status represents the current state of a task
type Status string

// Possible task status values. A task moves pending -> processing ->
// completed|failed, or pending -> cancelled. It never moves backwards.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s is a settled status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// PromptMode selects how a thumbnail prompt is obtained.
type PromptMode string

// Thumbnail prompt modes
const (
	// PromptModeAuto derives a scene prompt from the item's title and script.
	PromptModeAuto PromptMode = "auto"
	// PromptModeManual uses the prompt supplied with the task.
	PromptModeManual PromptMode = "manual"
)

// Config is the parameter snapshot a task is enqueued with. It is captured
// by value at enqueue time, so later edits to the source item do not change
// a queued task's instructions.
type Config struct {
	Title      string            `json:"title"`
	Variations int               `json:"variations,omitempty"`
	Mode       PromptMode        `json:"mode,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
	Style      string            `json:"style,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// clone returns a deep copy of c.
func (c Config) clone() Config {
	c.Extra = maps.Clone(c.Extra)
	return c
}

// EffectiveMode returns the prompt mode, defaulting to auto when no prompt
// was supplied and to manual otherwise.
func (c Config) EffectiveMode() PromptMode {
	if c.Mode != "" {
		return c.Mode
	}
	if c.Prompt == "" {
		return PromptModeAuto
	}
	return PromptModeManual
}

// EffectiveVariations returns the requested number of thumbnails, at least one.
func (c Config) EffectiveVariations() int {
	if c.Variations <= 0 {
		return 1
	}
	return c.Variations
}

// Result is the payload of a completed task.
type Result struct {
	Script       string   `json:"script,omitempty"`
	Thumbnails   []string `json:"thumbnails,omitempty"`
	Prompt       string   `json:"prompt,omitempty"`
	CreditsSpent int      `json:"credits_spent"`
}

// SuccessFunc is called once when a task completes, with its payload.
type SuccessFunc func(Task, Result)

// Task is one scheduled unit of generation work bound to an item and a kind.
// Values returned by a Queue are copies.
type Task struct {
	ID         uuid.UUID  `json:"id"`
	ItemID     uuid.UUID  `json:"item_id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	Kind       Kind       `json:"kind"`
	Status     Status     `json:"status"`
	Config     Config     `json:"config"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`

	onSuccess SuccessFunc
}

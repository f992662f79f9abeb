package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/budget"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// GenerationRequest is the body of POST /api/projects/{projectID}/generations.
type GenerationRequest struct {
	Kind string `json:"kind"     validate:"required,oneof=script thumbnail"`
	// ItemIDs selects items in order. Empty means every item of the project.
	ItemIDs    []uuid.UUID       `json:"item_ids" validate:"omitempty,max=500,dive,required"`
	Variations int               `json:"variations" validate:"gte=0,lte=8"`
	Mode       string            `json:"mode"     validate:"omitempty,oneof=auto manual"`
	Prompt     string            `json:"prompt"   validate:"max=2000"`
	Style      string            `json:"style"    validate:"max=200"`
	Extra      map[string]string `json:"extra"    validate:"omitempty,max=20"`
	// Confirmed accepts a batch clipped to what the balance can pay for.
	Confirmed bool `json:"confirmed"`
}

// config returns the task configuration carried by the request.
func (r GenerationRequest) config() task.Config {
	return task.Config{
		Variations: r.Variations,
		Mode:       task.PromptMode(r.Mode),
		Prompt:     r.Prompt,
		Style:      r.Style,
		Extra:      r.Extra,
	}
}

// PlanResponse is the affordability preview of a batch.
type PlanResponse struct {
	Outcome budget.Outcome `json:"outcome"`
	Plan    budget.Result  `json:"plan"`
}

// SubmissionResponse is returned when a batch is accepted.
type SubmissionResponse struct {
	Outcome budget.Outcome `json:"outcome"`
	Plan    budget.Result  `json:"plan"`
	TaskIDs []uuid.UUID    `json:"task_ids"`
	Dropped []uuid.UUID    `json:"dropped,omitempty"`
}

// PlanErrorResponse is returned when a batch is refused for budget reasons.
// It carries the plan so the client can present the confirmation dialog.
type PlanErrorResponse struct {
	Error   string         `json:"error"`
	TraceID string         `json:"trace_id,omitempty"`
	Outcome budget.Outcome `json:"outcome"`
	Plan    budget.Result  `json:"plan"`
}

// BusyResponse reports whether a project has unsettled work.
type BusyResponse struct {
	ProjectID uuid.UUID `json:"project_id"`
	Busy      bool      `json:"busy"`
}

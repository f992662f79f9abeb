package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/api/shared"
	"github.com/phrazzld/reelsmith-api/internal/budget"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/service"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// GenerationPlanner previews and submits generation batches.
// *service.GenerationService implements it.
type GenerationPlanner interface {
	Preview(
		ctx context.Context,
		principalID, projectID uuid.UUID,
		kind task.Kind,
		count, variations int,
	) (budget.Result, error)
	Submit(ctx context.Context, req service.Request) (*service.Submission, error)
}

// GenerationHandler serves the batch planning endpoints.
type GenerationHandler struct {
	planner GenerationPlanner
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(planner GenerationPlanner) *GenerationHandler {
	return &GenerationHandler{planner: planner}
}

// GetBudget handles GET /api/projects/{projectID}/budget.
// Query: kind (required), count (0 = all items), variations.
func (h *GenerationHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	principalID, projectID, ok := handlePrincipalAndPathUUID(w, r, "projectID")
	if !ok {
		return
	}

	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		HandleAPIError(w, r, err, "Invalid kind: invalid value")
		return
	}
	count, err := getQueryInt(r, "count", 0)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid count")
		return
	}
	variations, err := getQueryInt(r, "variations", 1)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid variations")
		return
	}

	plan, err := h.planner.Preview(r.Context(), principalID, projectID, kind, count, variations)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PlanResponse{Outcome: plan.Outcome(), Plan: plan})
}

// CreateGeneration handles POST /api/projects/{projectID}/generations.
//
// A fully affordable batch is enqueued and answered with 202. A batch that
// is only partly affordable is refused with 409 and its plan unless the
// request is confirmed; one that cannot afford a single unit is refused
// with 402 even when confirmed.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	principalID, projectID, ok := handlePrincipalAndPathUUID(w, r, "projectID")
	if !ok {
		return
	}

	var req GenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	sub, err := h.planner.Submit(r.Context(), service.Request{
		PrincipalID: principalID,
		ProjectID:   projectID,
		Kind:        task.Kind(req.Kind),
		ItemIDs:     req.ItemIDs,
		Config:      req.config(),
		Confirmed:   req.Confirmed,
	})
	if err != nil {
		var planErr *service.PlanError
		if errors.As(err, &planErr) {
			respondWithPlanError(w, r, planErr)
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContext(r.Context()).Info("generation batch accepted",
		"project_id", projectID,
		"kind", req.Kind,
		"enqueued", len(sub.TaskIDs),
		"dropped", len(sub.Dropped))

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmissionResponse{
		Outcome: sub.Plan.Outcome(),
		Plan:    sub.Plan,
		TaskIDs: sub.TaskIDs,
		Dropped: sub.Dropped,
	})
}

func respondWithPlanError(w http.ResponseWriter, r *http.Request, planErr *service.PlanError) {
	status := MapErrorToStatusCode(planErr)
	logger.FromContext(r.Context()).Debug("generation batch refused",
		"status_code", status,
		"outcome", planErr.Plan.Outcome(),
		"requested", planErr.Plan.Requested,
		"affordable", planErr.Plan.AffordableCount)
	shared.RespondWithJSON(w, r, status, PlanErrorResponse{
		Error:   GetSafeErrorMessage(planErr),
		TraceID: shared.GetTraceID(r.Context()),
		Outcome: planErr.Plan.Outcome(),
		Plan:    planErr.Plan,
	})
}

func parseKind(s string) (task.Kind, error) {
	switch k := task.Kind(s); k {
	case task.KindScript, task.KindThumbnail:
		return k, nil
	default:
		return "", domain.NewValidationError("kind", "must be script or thumbnail", domain.ErrValidation)
	}
}

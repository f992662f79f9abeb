package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/api/shared"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/service"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

var errTaskNotFound = fmt.Errorf("%w: task", store.ErrNotFound)

// QueueRegistry finds the queue of a principal without creating one.
// *task.Manager implements it.
type QueueRegistry interface {
	Lookup(principalID uuid.UUID) (*task.Queue, bool)
}

// ProfileReader returns a principal's billing state.
// *service.ProfileService implements it.
type ProfileReader interface {
	GetProfile(ctx context.Context, principalID uuid.UUID) (service.ProfileView, error)
}

// QueueHandler serves the queue inspection, control and event endpoints.
type QueueHandler struct {
	queues   QueueRegistry
	profiles ProfileReader
	hub      *realtime.Hub
}

// NewQueueHandler creates a QueueHandler. Without profiles GET /api/profile
// answers 404 and the event stream carries no profile state; without hub
// the event stream answers 404.
func NewQueueHandler(queues QueueRegistry, profiles ProfileReader, hub *realtime.Hub) *QueueHandler {
	return &QueueHandler{queues: queues, profiles: profiles, hub: hub}
}

// snapshot returns the principal's queue state. A principal that never
// enqueued anything has an empty, idle queue.
func (h *QueueHandler) snapshot(principalID uuid.UUID) task.Snapshot {
	if q, ok := h.queues.Lookup(principalID); ok {
		return q.Snapshot()
	}
	return task.Snapshot{PrincipalID: principalID, Tasks: []task.Task{}}
}

// GetQueue handles GET /api/queue.
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.snapshot(principalID))
}

// GetTaskStatus handles GET /api/queue/tasks?item_id=&kind=. It returns the
// most recently enqueued task for the item and kind.
func (h *QueueHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	itemID, err := getQueryUUID(r, "item_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		HandleAPIError(w, r, err, "Invalid kind: invalid value")
		return
	}

	q, ok := h.queues.Lookup(principalID)
	if !ok {
		HandleAPIError(w, r, errTaskNotFound, "Task not found")
		return
	}
	t, ok := q.GetTaskStatus(itemID, kind)
	if !ok {
		HandleAPIError(w, r, errTaskNotFound, "Task not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// GetProjectBusy handles GET /api/projects/{projectID}/busy.
func (h *QueueHandler) GetProjectBusy(w http.ResponseWriter, r *http.Request) {
	principalID, projectID, ok := handlePrincipalAndPathUUID(w, r, "projectID")
	if !ok {
		return
	}
	busy := false
	if q, found := h.queues.Lookup(principalID); found {
		busy = q.IsProjectBusy(projectID)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, BusyResponse{ProjectID: projectID, Busy: busy})
}

// CancelQueue handles POST /api/queue/cancel. Pending tasks are cancelled;
// a running task settles on its own. The resulting state is returned.
func (h *QueueHandler) CancelQueue(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if q, found := h.queues.Lookup(principalID); found {
		q.CancelQueue()
		logger.FromContext(r.Context()).Info("queue cancelled by principal")
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.snapshot(principalID))
}

// ClearQueue handles DELETE /api/queue.
func (h *QueueHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if q, found := h.queues.Lookup(principalID); found {
		q.ClearQueue()
		logger.FromContext(r.Context()).Info("queue cleared by principal")
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/profile.
func (h *QueueHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if h.profiles == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Not found")
		return
	}
	view, err := h.profiles.GetProfile(r.Context(), principalID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// Events handles GET /api/queue/events. It streams QueueUpdated and
// ProfileUpdated events for the principal, starting with the current state.
func (h *QueueHandler) Events(w http.ResponseWriter, r *http.Request) {
	principalID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Not found")
		return
	}
	log := logger.FromContext(r.Context())

	client := h.hub.NewClient(principalID)
	defer h.hub.CloseClient(client)
	h.hub.Subscribe(client, realtime.QueueChannel(principalID))
	h.hub.Subscribe(client, realtime.ProfileChannel(principalID))

	h.hub.Send(client, realtime.QueueMessage(h.snapshot(principalID)))
	if h.profiles != nil {
		view, err := h.profiles.GetProfile(r.Context(), principalID)
		if err != nil {
			log.Warn("failed to load initial profile for event stream", "error", err)
		} else {
			h.hub.Send(client, realtime.Message{
				Channel: realtime.ProfileChannel(principalID),
				Event:   realtime.EventProfileUpdated,
				Data:    view,
			})
		}
	}

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("write deadline not cleared", "error", err)
	}

	log.Debug("event stream opened", "client_id", client.ID)
	h.hub.Serve(w, r, client)
	log.Debug("event stream closed", "client_id", client.ID)
}

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/reelsmith-api/internal/api/middleware"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/service/auth"
)

// RouterConfig holds the collaborators of the HTTP API.
type RouterConfig struct {
	Logger     *slog.Logger
	JWT        auth.JWTService
	Generation GenerationPlanner
	Queues     QueueRegistry
	Profiles   ProfileReader
	Hub        *realtime.Hub
	// Ready, when set, is checked by GET /health.
	Ready func(ctx context.Context) error
}

// NewRouter builds the chi router serving the API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(log))

	generation := NewGenerationHandler(cfg.Generation)
	queue := NewQueueHandler(cfg.Queues, cfg.Profiles, cfg.Hub)
	authMiddleware := apiMiddleware.NewAuthMiddleware(cfg.JWT)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/profile", queue.GetProfile)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/budget", generation.GetBudget)
			r.Post("/generations", generation.CreateGeneration)
			r.Get("/busy", queue.GetProjectBusy)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", queue.GetQueue)
			r.Delete("/", queue.ClearQueue)
			r.Post("/cancel", queue.CancelQueue)
			r.Get("/tasks", queue.GetTaskStatus)
			r.Get("/events", queue.Events)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				log.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("UNAVAILABLE"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

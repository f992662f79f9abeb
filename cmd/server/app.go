package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/reelsmith-api/internal/api"
	"github.com/phrazzld/reelsmith-api/internal/config"
	"github.com/phrazzld/reelsmith-api/internal/generation"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/platform/gemini"
	"github.com/phrazzld/reelsmith-api/internal/platform/postgres"
	redisplatform "github.com/phrazzld/reelsmith-api/internal/platform/redis"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/service"
	"github.com/phrazzld/reelsmith-api/internal/service/auth"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// application holds the shared dependencies of the server and releases
// them on cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	ledger     ledger.Ledger
	hub        *realtime.Hub
	bus        realtime.Bus
	manager    *task.Manager
	generation *service.GenerationService
	profiles   *service.ProfileService
	jwtService auth.JWTService
}

// newApplication wires the server against Gemini.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	backend, err := gemini.New(ctx, logger.With("component", "gemini"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	}
	logger.Info("generation backend initialized",
		"text_model", cfg.LLM.TextModel,
		"image_model", cfg.LLM.ImageModel)
	return assemble(ctx, cfg, logger, db, backend)
}

// assemble builds every component on top of db and backend and starts the
// task manager and realtime bus. On error everything already started is
// released.
func assemble(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	backend generation.Backend,
) (_ *application, err error) {
	app := &application{config: cfg, logger: logger, db: db}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	if app.jwtService, err = auth.NewJWTService(cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	if needsRedis(cfg) {
		if app.redis, err = redisplatform.NewClient(ctx, cfg.Redis); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("redis connection established", "addr", cfg.Redis.Addr)
	}

	if app.ledger, err = selectLedger(cfg.Credits, db, app.redis); err != nil {
		return nil, err
	}

	app.hub = realtime.NewHub(logger)
	if app.bus, err = selectBus(cfg, app.redis, app.hub, logger); err != nil {
		return nil, err
	}
	if err = app.bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start realtime bus: %w", err)
	}

	items := postgres.NewPostgresItemStore(db)
	projects := postgres.NewPostgresProjectStore(db)
	profiles := postgres.NewPostgresProfileStore(db)

	if app.profiles, err = service.NewProfileService(profiles, app.ledger, app.bus, logger); err != nil {
		return nil, err
	}

	deps := task.Deps{
		Items:          items,
		Projects:       projects,
		Profiles:       profiles,
		Ledger:         app.ledger,
		Logger:         logger,
		BackendTimeout: cfg.Queue.BackendTimeout(),
	}
	script, err := task.NewScriptExecutor(deps, backend)
	if err != nil {
		return nil, err
	}
	thumbnails, err := task.NewThumbnailExecutor(deps, backend)
	if err != nil {
		return nil, err
	}

	managerCfg := task.DefaultManagerConfig()
	managerCfg.RecoverOnStart = cfg.Queue.RecoverOnStart
	if age := cfg.Queue.StuckItemAge(); age > 0 {
		managerCfg.StuckItemAge = age
	}
	managerCfg.StuckItemCheckInterval = cfg.Queue.StuckItemCheckInterval()
	app.manager = task.NewManager(managerCfg, items, app.profiles,
		realtime.NewQueueNotifier(app.bus, logger), logger)
	if err = app.manager.Register(task.KindScript, script); err != nil {
		return nil, err
	}
	if err = app.manager.Register(task.KindThumbnail, thumbnails); err != nil {
		return nil, err
	}
	if err = app.manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start task manager: %w", err)
	}

	app.generation, err = service.NewGenerationService(projects, items, profiles, app.ledger, app.manager, logger,
		service.WithItemPublisher(app.bus))
	if err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Credits.LedgerDriver == "redis" || cfg.Realtime.Driver == "redis"
}

// selectLedger returns the credit ledger named by cfg.LedgerDriver.
func selectLedger(cfg config.CreditsConfig, db *sql.DB, rdb *goredis.Client) (ledger.Ledger, error) {
	switch cfg.LedgerDriver {
	case "postgres":
		return postgres.NewPostgresLedger(db), nil
	case "redis":
		if rdb == nil {
			return nil, config.ErrRedisRequired
		}
		return redisplatform.NewLedger(rdb, redisplatform.DefaultKeyPrefix), nil
	case "memory":
		return ledger.NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
	}
}

// selectBus returns the realtime bus named by cfg.Realtime.Driver.
func selectBus(cfg *config.Config, rdb *goredis.Client, hub *realtime.Hub, logger *slog.Logger) (realtime.Bus, error) {
	switch cfg.Realtime.Driver {
	case "local":
		return realtime.NewLocalBus(hub), nil
	case "redis":
		if rdb == nil {
			return nil, config.ErrRedisRequired
		}
		return realtime.NewRedisBus(rdb, cfg.Redis.Channel, hub, logger)
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", cfg.Realtime.Driver)
	}
}

// router builds the HTTP handler.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:     app.logger,
		JWT:        app.jwtService,
		Generation: app.generation,
		Queues:     app.manager,
		Profiles:   app.profiles,
		Hub:        app.hub,
		Ready: func(ctx context.Context) error {
			return app.db.PingContext(ctx)
		},
	})
}

// Run serves HTTP on the configured port until ctx is cancelled, then shuts
// the server down within the configured timeout.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.serve(ctx, ln)
}

// serve runs the HTTP server on ln. Open event streams are closed when
// shutdown begins.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server.RegisterOnShutdown(app.hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		timeout := app.config.Server.ShutdownTimeout()
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	app.logger.Info("server stopped")
	return err
}

// cleanup stops background work and closes connections. It is safe on a
// partially assembled application.
func (app *application) cleanup() {
	if app.manager != nil {
		app.manager.Stop()
	}
	if app.bus != nil {
		if err := app.bus.Close(); err != nil {
			app.logger.Warn("failed to close realtime bus", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("failed to close redis client", "error", err)
		}
	}
}

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/generation"
	"github.com/phrazzld/reelsmith-api/internal/mocks"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/service"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// testAPI is the full router over in-memory stores and a started manager.
type testAPI struct {
	principal uuid.UUID
	project   domain.Project
	itemIDs   []uuid.UUID
	projects  *mocks.MockProjectStore
	ledger    *mocks.MockLedger
	gen       *mocks.MockGenerator
	manager   *task.Manager
	hub       *realtime.Hub
	server    *httptest.Server
}

func newTestAPI(t *testing.T, itemCount int) *testAPI {
	t.Helper()

	a := &testAPI{principal: uuid.New(), ledger: mocks.NewMockLedger(), gen: &mocks.MockGenerator{}}
	a.project = domain.Project{
		ID:       uuid.New(),
		OwnerID:  a.principal,
		Name:     "Deep sea",
		Settings: domain.ProjectSettings{DurationMinutes: 10},
	}
	var items []domain.Item
	for i := 0; i < itemCount; i++ {
		item, err := domain.NewItem(a.project.ID, "Creature "+string(rune('A'+i)))
		require.NoError(t, err)
		items = append(items, *item)
		a.itemIDs = append(a.itemIDs, item.ID)
	}

	itemStore := mocks.NewMockItemStore(items...)
	a.projects = mocks.NewMockProjectStore(a.project)
	projects := a.projects
	profiles := mocks.NewMockProfileStore()
	log, _ := logger.NewTestLogger()

	a.hub = realtime.NewHub(log)
	bus := realtime.NewLocalBus(a.hub)
	profileSvc, err := service.NewProfileService(profiles, a.ledger, bus, log)
	require.NoError(t, err)

	deps := task.Deps{Items: itemStore, Projects: projects, Profiles: profiles, Ledger: a.ledger, Logger: log}
	script, err := task.NewScriptExecutor(deps, a.gen)
	require.NoError(t, err)
	thumbs, err := task.NewThumbnailExecutor(deps, a.gen)
	require.NoError(t, err)

	a.manager = task.NewManager(task.DefaultManagerConfig(), itemStore, profileSvc,
		realtime.NewQueueNotifier(bus, log), log)
	require.NoError(t, a.manager.Register(task.KindScript, script))
	require.NoError(t, a.manager.Register(task.KindThumbnail, thumbs))
	require.NoError(t, a.manager.Start(context.Background()))
	t.Cleanup(a.manager.Stop)

	genSvc, err := service.NewGenerationService(projects, itemStore, profiles, a.ledger, a.manager, log,
		service.WithItemPublisher(bus))
	require.NoError(t, err)

	a.server = httptest.NewServer(NewRouter(RouterConfig{
		Logger:     log,
		JWT:        mocks.NewMockJWTServiceFor(a.principal),
		Generation: genSvc,
		Queues:     a.manager,
		Profiles:   profileSvc,
		Hub:        a.hub,
	}))
	t.Cleanup(a.server.Close)
	return a
}

func (a *testAPI) grant(t *testing.T, currency domain.Currency, amount int) {
	t.Helper()
	require.NoError(t, a.ledger.Grant(context.Background(), a.principal, currency, amount))
}

// blockScripts makes every script generation wait until the returned
// function is called.
func (a *testAPI) blockScripts(t *testing.T) (release func()) {
	t.Helper()
	gate := make(chan struct{})
	a.gen.GenerateScriptFn = func(ctx context.Context, _ generation.ScriptParams) (string, error) {
		select {
		case <-gate:
			return "a script", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

// do sends an authenticated request and returns the status and body.
func (a *testAPI) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, sonic.UnmarshalString(body, &v), body)
	return v
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/mocks"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// env wires the services to in-memory stores and a started task manager.
type env struct {
	principal uuid.UUID
	project   domain.Project
	itemIDs   []uuid.UUID
	items     *mocks.MockItemStore
	projects  *mocks.MockProjectStore
	profiles  *mocks.MockProfileStore
	ledger    *mocks.MockLedger
	gen       *mocks.MockGenerator
	publisher *recordingPublisher
	manager   *task.Manager
	generate  *GenerationService
	profile   *ProfileService
}

func newEnv(t *testing.T, itemCount int) *env {
	t.Helper()

	e := &env{
		principal: uuid.New(),
		ledger:    mocks.NewMockLedger(),
		gen:       &mocks.MockGenerator{},
		publisher: &recordingPublisher{},
	}
	e.project = domain.Project{
		ID:       uuid.New(),
		OwnerID:  e.principal,
		Name:     "Space history",
		Settings: domain.ProjectSettings{Niche: "space", DurationMinutes: 12},
	}
	var items []domain.Item
	for i := 0; i < itemCount; i++ {
		item, err := domain.NewItem(e.project.ID, "Mission "+string(rune('A'+i)))
		require.NoError(t, err)
		items = append(items, *item)
		e.itemIDs = append(e.itemIDs, item.ID)
	}

	e.items = mocks.NewMockItemStore(items...)
	e.projects = mocks.NewMockProjectStore(e.project)
	e.profiles = mocks.NewMockProfileStore(domain.Profile{
		PrincipalID:      e.principal,
		Plan:             "creator",
		MinutesPerCredit: 30,
	})

	log, _ := logger.NewTestLogger()
	var err error
	e.profile, err = NewProfileService(e.profiles, e.ledger, e.publisher, log)
	require.NoError(t, err)

	deps := task.Deps{Items: e.items, Projects: e.projects, Profiles: e.profiles, Ledger: e.ledger, Logger: log}
	script, err := task.NewScriptExecutor(deps, e.gen)
	require.NoError(t, err)
	thumbs, err := task.NewThumbnailExecutor(deps, e.gen)
	require.NoError(t, err)

	e.manager = task.NewManager(task.DefaultManagerConfig(), e.items, e.profile, nil, log)
	require.NoError(t, e.manager.Register(task.KindScript, script))
	require.NoError(t, e.manager.Register(task.KindThumbnail, thumbs))
	require.NoError(t, e.manager.Start(context.Background()))
	t.Cleanup(e.manager.Stop)

	e.generate, err = NewGenerationService(e.projects, e.items, e.profiles, e.ledger, e.manager, log)
	require.NoError(t, err)
	return e
}

func (e *env) grant(t *testing.T, currency domain.Currency, amount int) {
	t.Helper()
	require.NoError(t, e.ledger.Grant(context.Background(), e.principal, currency, amount))
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []realtime.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) messages() []realtime.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Message(nil), p.msgs...)
}

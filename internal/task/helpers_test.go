package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/mocks"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// fixture wires a started Queue to in-memory collaborators.
type fixture struct {
	principal uuid.UUID
	project   domain.Project
	itemIDs   []uuid.UUID
	items     *mocks.MockItemStore
	projects  *mocks.MockProjectStore
	profiles  *mocks.MockProfileStore
	ledger    *mocks.MockLedger
	gen       *mocks.MockGenerator
	deps      Deps
	queue     *Queue
}

// newFixture creates a project with n items, duration 12 minutes and a
// profile at 30 minutes per credit, so one script costs one text credit.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()

	f := &fixture{principal: uuid.New(), gen: &mocks.MockGenerator{}, ledger: mocks.NewMockLedger()}
	f.project = domain.Project{
		ID:      uuid.New(),
		OwnerID: f.principal,
		Name:    "Ocean facts",
		Settings: domain.ProjectSettings{
			Niche:           "science",
			Tone:            "curious",
			DurationMinutes: 12,
		},
	}

	var items []domain.Item
	for i := 0; i < n; i++ {
		item, err := domain.NewItem(f.project.ID, "Episode "+string(rune('A'+i)))
		require.NoError(t, err)
		items = append(items, *item)
		f.itemIDs = append(f.itemIDs, item.ID)
	}
	f.project.Items = items

	f.items = mocks.NewMockItemStore(items...)
	f.projects = mocks.NewMockProjectStore(f.project)
	f.profiles = mocks.NewMockProfileStore(domain.Profile{
		PrincipalID:      f.principal,
		Plan:             "creator",
		MinutesPerCredit: 30,
	})

	log, _ := logger.NewTestLogger()
	f.deps = Deps{
		Items:    f.items,
		Projects: f.projects,
		Profiles: f.profiles,
		Ledger:   f.ledger,
		Logger:   log,
	}

	script, err := NewScriptExecutor(f.deps, f.gen)
	require.NoError(t, err)
	thumbs, err := NewThumbnailExecutor(f.deps, f.gen)
	require.NoError(t, err)

	f.queue = NewQueue(f.principal, map[Kind]Executor{
		KindScript:    script,
		KindThumbnail: thumbs,
	}, nil, log)
	f.queue.Start(context.Background())
	t.Cleanup(f.queue.Stop)
	return f
}

func (f *fixture) grant(t *testing.T, currency domain.Currency, amount int) {
	t.Helper()
	require.NoError(t, f.ledger.Grant(context.Background(), f.principal, currency, amount))
}

func (f *fixture) balance(t *testing.T, currency domain.Currency) int {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), f.principal, currency)
	require.NoError(t, err)
	return b
}

func (f *fixture) enqueue(t *testing.T, kind Kind, cfg Config, onSuccess SuccessFunc, itemIDs ...uuid.UUID) []uuid.UUID {
	t.Helper()
	ids, err := f.queue.Enqueue(f.project, itemIDs, kind, cfg, onSuccess)
	require.NoError(t, err)
	require.Len(t, ids, len(itemIDs))
	return ids
}

func findTask(snap Snapshot, id uuid.UUID) (Task, bool) {
	for _, t := range snap.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// waitForStatus blocks until the task reaches status.
func waitForStatus(t *testing.T, q *Queue, id uuid.UUID, status Status) Task {
	t.Helper()
	var got Task
	require.Eventually(t, func() bool {
		task, ok := findTask(q.Snapshot(), id)
		got = task
		return ok && task.Status == status
	}, waitFor, tick, "task %s never reached %s (last %s)", id, status, got.Status)
	return got
}

// waitForIdle blocks until every task has settled and the worker is free.
func waitForIdle(t *testing.T, q *Queue) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = q.Snapshot()
		return !snap.IsProcessing && snap.Stats.Settled() == snap.Stats.Total
	}, waitFor, tick)
	return snap
}

// gate blocks backend calls until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) awaitStart(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for backend call to start")
	}
}

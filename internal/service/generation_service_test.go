package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reelsmith-api/internal/budget"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/mocks"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

func TestGenerationService_SubmitFullBatch(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 3)
	e.grant(t, domain.CurrencyText, 5)

	sub, err := e.generate.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
	})
	require.NoError(t, err)
	assert.Len(t, sub.TaskIDs, 3)
	assert.Empty(t, sub.Dropped)
	assert.Equal(t, budget.OutcomeFull, sub.Plan.Outcome())
	assert.Equal(t, 1, sub.Plan.CostPerUnit)

	q, ok := e.manager.Lookup(e.principal)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return q.Snapshot().Stats.Completed == 3
	}, 2*time.Second, 5*time.Millisecond)

	balance, err := e.ledger.Balance(context.Background(), e.principal, domain.CurrencyText)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestGenerationService_PartialBatch(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 3)
	e.grant(t, domain.CurrencyText, 2)
	req := Request{PrincipalID: e.principal, ProjectID: e.project.ID, Kind: task.KindScript}

	_, err := e.generate.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrConfirmationRequired)
	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, 2, planErr.Plan.AffordableCount)
	assert.Equal(t, 3, planErr.Plan.Requested)
	_, ok := e.manager.Lookup(e.principal)
	assert.False(t, ok, "nothing is enqueued before confirmation")

	req.Confirmed = true
	sub, err := e.generate.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, sub.TaskIDs, 2)
	assert.Equal(t, []uuid.UUID{e.itemIDs[2]}, sub.Dropped, "the affordable prefix is kept in order")
}

func TestGenerationService_OutOfCredits(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 2)

	_, err := e.generate.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
		Confirmed:   true,
	})
	require.ErrorIs(t, err, ErrOutOfCredits, "confirmation never overrides the hard stop")
	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.True(t, planErr.Plan.IsFullyOutOfCredits)
	assert.Empty(t, e.gen.ScriptCalls())
}

func TestGenerationService_Pricing(t *testing.T) {
	t.Parallel()

	t.Run("script cost follows duration and plan rate", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, 2)
		e.profiles = mocks.NewMockProfileStore(domain.Profile{PrincipalID: e.principal, MinutesPerCredit: 5})
		svc, err := NewGenerationService(e.projects, e.items, e.profiles, e.ledger, e.manager, nil)
		require.NoError(t, err)
		e.grant(t, domain.CurrencyText, 7)

		plan, err := svc.Preview(context.Background(), e.principal, e.project.ID, task.KindScript, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, plan.CostPerUnit, "ceil(12 / 5)")
		assert.Equal(t, 2, plan.Requested, "count 0 means every item")
		assert.Equal(t, 2, plan.AffordableCount)
	})

	t.Run("script without profile uses the default rate", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, 1)
		svc, err := NewGenerationService(e.projects, e.items, mocks.NewMockProfileStore(), e.ledger, e.manager, nil)
		require.NoError(t, err)

		plan, err := svc.Preview(context.Background(), e.principal, e.project.ID, task.KindScript, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, plan.CostPerUnit)
		assert.Equal(t, budget.OutcomeNone, plan.Outcome())
	})

	t.Run("thumbnails cost one image per variation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, 3)
		e.grant(t, domain.CurrencyImage, 5)

		plan, err := e.generate.Preview(context.Background(), e.principal, e.project.ID, task.KindThumbnail, 3, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, plan.CostPerUnit)
		assert.Equal(t, 2, plan.AffordableCount)
		assert.Equal(t, 4, plan.TotalCost)
	})
}

func TestGenerationService_SubmitThumbnails(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 2)
	e.grant(t, domain.CurrencyImage, 4)

	sub, err := e.generate.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindThumbnail,
		ItemIDs:     []uuid.UUID{e.itemIDs[1], e.itemIDs[0], e.itemIDs[1]},
		Config:      task.Config{Variations: 2, Mode: task.PromptModeManual, Prompt: "rocket at dawn"},
	})
	require.NoError(t, err)
	require.Len(t, sub.TaskIDs, 2, "duplicate ids are enqueued once")

	q, _ := e.manager.Lookup(e.principal)
	require.Eventually(t, func() bool { return q.Snapshot().Stats.Completed == 2 }, 2*time.Second, 5*time.Millisecond)

	first, ok := q.GetTaskStatus(e.itemIDs[1], task.KindThumbnail)
	require.True(t, ok)
	assert.Equal(t, sub.TaskIDs[0], first.ID, "request order is queue order")
}

func TestGenerationService_RequestErrors(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1)
	e.grant(t, domain.CurrencyText, 10)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "missing principal",
			req:  Request{ProjectID: e.project.ID, Kind: task.KindScript},
			want: ErrInvalidRequest,
		},
		{
			name: "unknown kind",
			req:  Request{PrincipalID: e.principal, ProjectID: e.project.ID, Kind: task.Kind("voiceover")},
			want: ErrInvalidRequest,
		},
		{
			name: "foreign project",
			req:  Request{PrincipalID: uuid.New(), ProjectID: e.project.ID, Kind: task.KindScript},
			want: ErrNotOwned,
		},
		{
			name: "missing project",
			req:  Request{PrincipalID: e.principal, ProjectID: uuid.New(), Kind: task.KindScript},
			want: store.ErrProjectNotFound,
		},
		{
			name: "item from another project",
			req: Request{
				PrincipalID: e.principal,
				ProjectID:   e.project.ID,
				Kind:        task.KindScript,
				ItemIDs:     []uuid.UUID{uuid.New()},
			},
			want: ErrItemNotInProject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.generate.Submit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("empty project", func(t *testing.T) {
		empty := domain.Project{ID: uuid.New(), OwnerID: e.principal, Name: "Empty"}
		e.projects.Put(empty)
		_, err := e.generate.Submit(ctx, Request{PrincipalID: e.principal, ProjectID: empty.ID, Kind: task.KindScript})
		assert.ErrorIs(t, err, ErrNothingToGenerate)
	})
}

func TestGenerationService_BalanceError(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1)
	e.ledger.BalanceFn = func(context.Context, uuid.UUID, domain.Currency) (int, error) {
		return 0, errors.New("ledger offline")
	}

	_, err := e.generate.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
	})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "submit", svcErr.Operation)
}

func TestNewGenerationService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 0)
	_, err := NewGenerationService(nil, e.items, e.profiles, e.ledger, e.manager, nil)
	assert.Error(t, err)
	_, err = NewGenerationService(e.projects, e.items, e.profiles, nil, e.manager, nil)
	assert.Error(t, err)
	_, err = NewGenerationService(e.projects, e.items, e.profiles, e.ledger, nil, nil)
	assert.Error(t, err)
}

func TestGenerationService_PublishesCompletedItems(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 2)
	e.grant(t, domain.CurrencyText, 2)
	items := &recordingPublisher{}
	svc, err := NewGenerationService(e.projects, e.items, e.profiles, e.ledger, e.manager, nil,
		WithItemPublisher(items))
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(items.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	for i, msg := range items.messages() {
		assert.Equal(t, realtime.EventItemUpdated, msg.Event)
		assert.Equal(t, realtime.QueueChannel(e.principal), msg.Channel)
		update, ok := msg.Data.(realtime.ItemUpdate)
		require.True(t, ok)
		assert.Equal(t, e.itemIDs[i], update.ItemID)
		assert.Equal(t, task.KindScript, update.Kind)
		assert.Equal(t, "Script for Mission "+string(rune('A'+i)), update.Result.Script)
	}
}

func TestGenerationService_CallerCallbackReplacesPublisher(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1)
	e.grant(t, domain.CurrencyText, 1)
	items := &recordingPublisher{}
	svc, err := NewGenerationService(e.projects, e.items, e.profiles, e.ledger, e.manager, nil,
		WithItemPublisher(items))
	require.NoError(t, err)

	called := make(chan task.Result, 1)
	_, err = svc.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
		OnSuccess:   func(_ task.Task, r task.Result) { called <- r },
	})
	require.NoError(t, err)

	select {
	case r := <-called:
		assert.NotEmpty(t, r.Script)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
	}
	assert.Empty(t, items.messages())
}

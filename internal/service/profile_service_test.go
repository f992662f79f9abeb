package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/mocks"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

func TestProfileService_GetProfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 0)
	e.grant(t, domain.CurrencyText, 4)
	e.grant(t, domain.CurrencyImage, 9)

	view, err := e.profile.GetProfile(context.Background(), e.principal)
	require.NoError(t, err)
	assert.Equal(t, ProfileView{
		PrincipalID:      e.principal,
		Plan:             "creator",
		MinutesPerCredit: 30,
		TextCredits:      4,
		ImageCredits:     9,
	}, view)

	stranger := uuid.New()
	view, err = e.profile.GetProfile(context.Background(), stranger)
	require.NoError(t, err, "a missing profile falls back to defaults")
	assert.Equal(t, domain.DefaultMinutesPerCredit, view.MinutesPerCredit)
	assert.Zero(t, view.TextCredits)
}

func TestProfileService_RefreshPublishes(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 0)
	e.grant(t, domain.CurrencyImage, 2)

	require.NoError(t, e.profile.RefreshProfile(context.Background(), e.principal))

	msgs := e.publisher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, realtime.ProfileChannel(e.principal), msgs[0].Channel)
	assert.Equal(t, realtime.EventProfileUpdated, msgs[0].Event)
	view, ok := msgs[0].Data.(ProfileView)
	require.True(t, ok)
	assert.Equal(t, 2, view.ImageCredits)
}

func TestProfileService_RefreshErrors(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 0)
	e.publisher.err = errors.New("bus down")
	assert.Error(t, e.profile.RefreshProfile(context.Background(), e.principal))

	profiles := mocks.NewMockProfileStore()
	profiles.GetProfileFn = func(context.Context, uuid.UUID) (*domain.Profile, error) {
		return nil, errors.New("database unavailable")
	}
	svc, err := NewProfileService(profiles, e.ledger, nil, nil)
	require.NoError(t, err)
	assert.Error(t, svc.RefreshProfile(context.Background(), e.principal))

	_, err = NewProfileService(nil, e.ledger, nil, nil)
	assert.Error(t, err)
}

func TestProfileService_RefreshedAfterEveryTask(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 2)
	e.grant(t, domain.CurrencyText, 2)

	_, err := e.generate.Submit(context.Background(), Request{
		PrincipalID: e.principal,
		ProjectID:   e.project.ID,
		Kind:        task.KindScript,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(e.publisher.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	last := e.publisher.messages()[1].Data.(ProfileView)
	assert.Zero(t, last.TextCredits)
}

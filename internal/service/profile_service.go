package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// Publisher sends realtime messages. realtime.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, msg realtime.Message) error
}

// ProfileView is the billing state shown to a principal.
type ProfileView struct {
	PrincipalID      uuid.UUID `json:"principal_id"`
	Plan             string    `json:"plan"`
	MinutesPerCredit int       `json:"minutes_per_credit"`
	TextCredits      int       `json:"text_credits"`
	ImageCredits     int       `json:"image_credits"`
}

// ProfileService reads and publishes principal billing state.
type ProfileService struct {
	profiles  store.ProfileStore
	ledger    ledger.Ledger
	publisher Publisher
	logger    *slog.Logger
}

var _ task.ProfileRefresher = (*ProfileService)(nil)

// NewProfileService creates a ProfileService. publisher may be nil, in which
// case refreshes only read.
func NewProfileService(
	profiles store.ProfileStore,
	credits ledger.Ledger,
	publisher Publisher,
	logger *slog.Logger,
) (*ProfileService, error) {
	if profiles == nil {
		return nil, newServiceError("create_service", "profiles cannot be nil", nil)
	}
	if credits == nil {
		return nil, newServiceError("create_service", "ledger cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		profiles:  profiles,
		ledger:    credits,
		publisher: publisher,
		logger:    logger.With("component", "profile_service"),
	}, nil
}

// GetProfile returns the principal's plan and both balances. A principal
// without a stored profile gets the default plan rate.
func (s *ProfileService) GetProfile(ctx context.Context, principalID uuid.UUID) (ProfileView, error) {
	profile, err := s.profiles.GetProfile(ctx, principalID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return ProfileView{}, newServiceError("get_profile", "failed to read profile", err)
	}

	view := ProfileView{
		PrincipalID:      principalID,
		MinutesPerCredit: profile.EffectiveMinutesPerCredit(),
	}
	if profile != nil {
		view.Plan = profile.Plan
	}

	if view.TextCredits, err = s.ledger.Balance(ctx, principalID, domain.CurrencyText); err != nil {
		return ProfileView{}, newServiceError("get_profile", "failed to read text balance", err)
	}
	if view.ImageCredits, err = s.ledger.Balance(ctx, principalID, domain.CurrencyImage); err != nil {
		return ProfileView{}, newServiceError("get_profile", "failed to read image balance", err)
	}
	return view, nil
}

// RefreshProfile implements task.ProfileRefresher. It re-reads the
// principal's billing state and publishes it on the profile channel.
func (s *ProfileService) RefreshProfile(ctx context.Context, principalID uuid.UUID) error {
	view, err := s.GetProfile(ctx, principalID)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}

	err = s.publisher.Publish(ctx, realtime.Message{
		Channel: realtime.ProfileChannel(principalID),
		Event:   realtime.EventProfileUpdated,
		Data:    view,
	})
	if err != nil {
		return newServiceError("refresh_profile", "failed to publish profile", err)
	}
	s.logger.DebugContext(ctx, "profile refreshed",
		"principal_id", principalID,
		"text_credits", view.TextCredits,
		"image_credits", view.ImageCredits)
	return nil
}

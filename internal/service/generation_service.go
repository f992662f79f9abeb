package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/reelsmith-api/internal/budget"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/realtime"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// Queues resolves the task queue of a principal. *task.Manager implements it.
type Queues interface {
	Queue(principalID uuid.UUID) (*task.Queue, error)
	Supports(kind task.Kind) bool
}

// Request describes a batch a principal wants generated.
type Request struct {
	PrincipalID uuid.UUID   `validate:"required"`
	ProjectID   uuid.UUID   `validate:"required"`
	Kind        task.Kind   `validate:"required,oneof=script thumbnail"`
	ItemIDs     []uuid.UUID `validate:"omitempty,dive,required"`
	Config      task.Config
	// Confirmed accepts a batch clipped to the affordable prefix.
	Confirmed bool
	// OnSuccess receives each completed task's payload. When nil and the
	// service has a publisher, payloads are published as ItemUpdated.
	OnSuccess task.SuccessFunc
}

// Submission is the result of an accepted batch.
type Submission struct {
	Plan    budget.Result `json:"plan"`
	TaskIDs []uuid.UUID   `json:"task_ids"`
	// Dropped lists the requested items left out because they were not affordable.
	Dropped []uuid.UUID `json:"dropped,omitempty"`
}

// GenerationService plans and enqueues generation batches.
type GenerationService struct {
	projects store.ProjectStore
	items    store.ItemStore
	profiles store.ProfileStore
	ledger   ledger.Ledger
	queues    Queues
	publisher Publisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// GenerationOption configures a GenerationService.
type GenerationOption func(*GenerationService)

// WithItemPublisher publishes the payload of every completed task on the
// principal's queue channel.
func WithItemPublisher(p Publisher) GenerationOption {
	return func(s *GenerationService) {
		s.publisher = p
	}
}

// NewGenerationService creates a GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	projects store.ProjectStore,
	items store.ItemStore,
	profiles store.ProfileStore,
	credits ledger.Ledger,
	queues Queues,
	logger *slog.Logger,
	opts ...GenerationOption,
) (*GenerationService, error) {
	switch {
	case projects == nil:
		return nil, newServiceError("create_service", "projects cannot be nil", nil)
	case items == nil:
		return nil, newServiceError("create_service", "items cannot be nil", nil)
	case profiles == nil:
		return nil, newServiceError("create_service", "profiles cannot be nil", nil)
	case credits == nil:
		return nil, newServiceError("create_service", "ledger cannot be nil", nil)
	case queues == nil:
		return nil, newServiceError("create_service", "queues cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &GenerationService{
		projects: projects,
		items:    items,
		profiles: profiles,
		ledger:   credits,
		queues:   queues,
		validate: validator.New(),
		logger:   logger.With("component", "generation_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// pricing is what one unit of a kind costs and in which currency.
type pricing struct {
	currency domain.Currency
	perUnit  int
}

// Preview plans a batch of count units without enqueuing anything. A
// non-positive count means every item of the project.
func (s *GenerationService) Preview(
	ctx context.Context,
	principalID, projectID uuid.UUID,
	kind task.Kind,
	count, variations int,
) (budget.Result, error) {
	project, err := s.loadProject(ctx, principalID, projectID)
	if err != nil {
		return budget.Result{}, err
	}
	if count <= 0 {
		count = len(project.Items)
	}

	price, err := s.price(ctx, principalID, project, kind, task.Config{Variations: variations})
	if err != nil {
		return budget.Result{}, err
	}
	available, err := s.ledger.Balance(ctx, principalID, price.currency)
	if err != nil {
		return budget.Result{}, newServiceError("preview", "failed to read balance", err)
	}
	return budget.Plan(count, available, price.perUnit), nil
}

// Submit plans req and enqueues the affordable prefix of its items.
//
// It returns a *PlanError wrapping ErrOutOfCredits when nothing is
// affordable, and one wrapping ErrConfirmationRequired when only part is
// affordable and req.Confirmed is false. Nothing is enqueued in either case.
func (s *GenerationService) Submit(ctx context.Context, req Request) (*Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !s.queues.Supports(req.Kind) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, task.ErrUnknownKind)
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"principal_id", req.PrincipalID,
		"project_id", req.ProjectID,
		"task_kind", req.Kind)

	project, err := s.loadProject(ctx, req.PrincipalID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	itemIDs, err := selectItems(project, req.ItemIDs)
	if err != nil {
		return nil, err
	}

	price, err := s.price(ctx, req.PrincipalID, project, req.Kind, req.Config)
	if err != nil {
		return nil, err
	}
	available, err := s.ledger.Balance(ctx, req.PrincipalID, price.currency)
	if err != nil {
		return nil, newServiceError("submit", "failed to read balance", err)
	}

	plan := budget.Plan(len(itemIDs), available, price.perUnit)
	switch plan.Outcome() {
	case budget.OutcomeNone:
		log.InfoContext(ctx, "batch rejected, out of credits",
			"requested", plan.Requested,
			"available", available)
		return nil, &PlanError{Plan: plan, Err: ErrOutOfCredits}
	case budget.OutcomePartial:
		if !req.Confirmed {
			return nil, &PlanError{Plan: plan, Err: ErrConfirmationRequired}
		}
	}

	queue, err := s.queues.Queue(req.PrincipalID)
	if err != nil {
		return nil, newServiceError("submit", "queue unavailable", err)
	}
	onSuccess := req.OnSuccess
	if onSuccess == nil && s.publisher != nil {
		onSuccess = s.publishItem(context.WithoutCancel(ctx), req.PrincipalID)
	}
	accepted := itemIDs[:plan.AffordableCount]
	taskIDs, err := queue.Enqueue(*project, accepted, req.Kind, req.Config, onSuccess)
	if err != nil {
		return nil, newServiceError("submit", "failed to enqueue", err)
	}

	log.InfoContext(ctx, "batch enqueued",
		"requested", plan.Requested,
		"enqueued", len(taskIDs),
		"cost_per_unit", plan.CostPerUnit)

	return &Submission{
		Plan:    plan,
		TaskIDs: taskIDs,
		Dropped: itemIDs[plan.AffordableCount:],
	}, nil
}

// publishItem returns a callback publishing each completed task's payload.
// ctx outlives the submitting request.
func (s *GenerationService) publishItem(ctx context.Context, principalID uuid.UUID) task.SuccessFunc {
	return func(t task.Task, result task.Result) {
		if err := s.publisher.Publish(ctx, realtime.ItemMessage(principalID, t, result)); err != nil {
			logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "failed to publish item update",
				"task_id", t.ID,
				"item_id", t.ItemID,
				"error", err)
		}
	}
}

// loadProject reads the project with its items and checks ownership.
func (s *GenerationService) loadProject(ctx context.Context, principalID, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrProjectNotFound
		}
		return nil, newServiceError("load_project", "failed to read project", err)
	}
	if !project.OwnedBy(principalID) {
		return nil, ErrNotOwned
	}

	items, err := s.items.ListItems(ctx, projectID)
	if err != nil {
		return nil, newServiceError("load_project", "failed to list items", err)
	}
	project.Items = items
	return project, nil
}

func (s *GenerationService) price(
	ctx context.Context,
	principalID uuid.UUID,
	project *domain.Project,
	kind task.Kind,
	cfg task.Config,
) (pricing, error) {
	switch kind {
	case task.KindScript:
		profile, err := s.profiles.GetProfile(ctx, principalID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return pricing{}, newServiceError("price", "failed to read profile", err)
		}
		return pricing{
			currency: domain.CurrencyText,
			perUnit: budget.CreditsForDuration(
				project.Settings.EffectiveDuration(),
				profile.EffectiveMinutesPerCredit()),
		}, nil
	case task.KindThumbnail:
		return pricing{currency: domain.CurrencyImage, perUnit: cfg.EffectiveVariations()}, nil
	default:
		return pricing{}, fmt.Errorf("%w: %w", ErrInvalidRequest, task.ErrUnknownKind)
	}
}

// selectItems returns the requested ids in request order, or every item of
// the project when none were requested. Duplicates are kept once.
func selectItems(project *domain.Project, requested []uuid.UUID) ([]uuid.UUID, error) {
	if len(requested) == 0 {
		ids := make([]uuid.UUID, 0, len(project.Items))
		for _, it := range project.Items {
			ids = append(ids, it.ID)
		}
		if len(ids) == 0 {
			return nil, ErrNothingToGenerate
		}
		return ids, nil
	}

	seen := make(map[uuid.UUID]bool, len(requested))
	ids := make([]uuid.UUID, 0, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		if _, ok := project.FindItem(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNotInProject, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// Job is what a queue hands an Executor for one task.
type Job struct {
	Task        Task
	PrincipalID uuid.UUID

	// Cancelled reports whether the queue was cancelled or cleared after
	// this job started. Executors may poll it between backend calls to
	// avoid starting further work; it never aborts work in flight.
	Cancelled func() bool
}

func (j Job) cancelled() bool {
	return j.Cancelled != nil && j.Cancelled()
}

// Executor runs the kind-specific rule for a task. A nil error means the
// task completed and was paid for.
type Executor interface {
	Execute(ctx context.Context, job Job) (Result, error)
}

// ProfileRefresher refreshes the caller's view of a principal's balance
// after a task settles.
type ProfileRefresher interface {
	RefreshProfile(ctx context.Context, principalID uuid.UUID) error
}

// Deps are the collaborators shared by the built-in executors.
type Deps struct {
	Items    store.ItemStore
	Projects store.ProjectStore
	Profiles store.ProfileStore
	Ledger   ledger.Ledger
	Logger   *slog.Logger

	// BackendTimeout bounds each generation backend call; zero disables it.
	BackendTimeout time.Duration
}

func (d Deps) validate() error {
	if d.Items == nil || d.Projects == nil || d.Profiles == nil || d.Ledger == nil {
		return errors.New("task executor dependencies are incomplete")
	}
	return nil
}

// backendContext applies the optional backend timeout.
func (d Deps) backendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.BackendTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.BackendTimeout)
}

func (d Deps) log(ctx context.Context) *slog.Logger {
	if d.Logger == nil {
		return logger.FromContext(ctx)
	}
	return logger.FromContextOrDefault(ctx, d.Logger)
}

// loadTarget re-reads the project and item a job refers to and checks
// that the job's principal owns them.
func (d Deps) loadTarget(ctx context.Context, job Job) (*domain.Project, *domain.Item, error) {
	if job.PrincipalID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}

	project, err := d.Projects.GetProject(ctx, job.Task.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project: %w", err)
	}
	if !project.OwnedBy(job.PrincipalID) {
		return nil, nil, ErrUnauthenticated
	}

	item, err := d.Items.GetItem(ctx, job.Task.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load item: %w", err)
	}
	if item.ProjectID != project.ID {
		return nil, nil, fmt.Errorf("%w: item %s is not part of project %s",
			store.ErrItemNotFound, item.ID, project.ID)
	}
	return project, item, nil
}

// loadProfile returns the principal's profile, or nil when it has none so
// that plan defaults apply.
func (d Deps) loadProfile(ctx context.Context, principalID uuid.UUID) (*domain.Profile, error) {
	profile, err := d.Profiles.GetProfile(ctx, principalID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// setStatus writes a partial item record. Failures are logged and
// swallowed: the record is a mirror for other observers and its loss
// does not change the task outcome.
func (d Deps) setStatus(ctx context.Context, itemID uuid.UUID, fields store.ItemFields) {
	// Persist even when the queue is shutting down.
	ctx = context.WithoutCancel(ctx)
	if err := d.Items.SetStatus(ctx, itemID, fields); err != nil {
		d.log(ctx).ErrorContext(ctx, "failed to persist item status",
			"item_id", itemID,
			"error", err)
	}
}

// deduct spends amount credits and converts a refusal into ErrLedgerRejected.
func (d Deps) deduct(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) error {
	ok, err := d.Ledger.TryDeduct(context.WithoutCancel(ctx), principalID, currency, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerRejected, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d %s credits", ErrLedgerRejected, amount, currency)
	}
	return nil
}

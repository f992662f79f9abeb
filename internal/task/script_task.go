package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/reelsmith-api/internal/budget"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/generation"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// ScriptExecutor writes a script for an item and charges text credits for it.
type ScriptExecutor struct {
	deps      Deps
	generator generation.ScriptGenerator
}

var _ Executor = (*ScriptExecutor)(nil)

// NewScriptExecutor creates a ScriptExecutor.
func NewScriptExecutor(deps Deps, generator generation.ScriptGenerator) (*ScriptExecutor, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, errors.New("script generator cannot be nil")
	}
	return &ScriptExecutor{deps: deps, generator: generator}, nil
}

// Execute runs the script rule:
//  1. the principal must own the project and afford
//     ceil(duration / minutes_per_credit) text credits, or the task fails
//     without calling the backend or the ledger;
//  2. the item is marked generating and the backend is called;
//  3. a non-empty script is paid for with an atomic deduction;
//  4. only a paid script is persisted as completed.
func (e *ScriptExecutor) Execute(ctx context.Context, job Job) (Result, error) {
	log := e.deps.log(ctx)

	project, item, err := e.deps.loadTarget(ctx, job)
	if err != nil {
		return Result{}, e.fail(ctx, job, err)
	}
	profile, err := e.deps.loadProfile(ctx, job.PrincipalID)
	if err != nil {
		return Result{}, e.fail(ctx, job, err)
	}

	duration := project.Settings.EffectiveDuration()
	cost := budget.CreditsForDuration(duration, profile.EffectiveMinutesPerCredit())

	balance, err := e.deps.Ledger.Balance(ctx, job.PrincipalID, domain.CurrencyText)
	if err != nil {
		return Result{}, e.fail(ctx, job, fmt.Errorf("failed to read balance: %w", err))
	}
	if cost > balance {
		return Result{}, e.fail(ctx, job, fmt.Errorf("%w: script needs %d text credits, %d available",
			ErrInsufficientBalance, cost, balance))
	}

	e.deps.setStatus(ctx, item.ID, store.ItemFields{
		Status: store.StatusPtr(domain.GenerationStatusGenerating),
		Error:  store.StringPtr(""),
	})

	title := job.Task.Config.Title
	if title == "" {
		title = item.Title
	}
	params := generation.ScriptParams{
		Title:           title,
		Niche:           project.Settings.Niche,
		Tone:            project.Settings.Tone,
		Structure:       project.Settings.Structure,
		DurationMinutes: duration,
		Template:        project.Settings.Template,
	}

	backendCtx, cancel := e.deps.backendContext(ctx)
	script, err := e.generator.GenerateScript(backendCtx, params)
	cancel()
	if err != nil {
		return Result{}, e.fail(ctx, job, err)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return Result{}, e.fail(ctx, job, ErrEmptyResult)
	}

	if err := e.deps.deduct(ctx, job.PrincipalID, domain.CurrencyText, cost); err != nil {
		return Result{}, e.fail(ctx, job, err)
	}

	e.deps.setStatus(ctx, item.ID, store.ItemFields{
		Script: store.StringPtr(script),
		Status: store.StatusPtr(domain.GenerationStatusCompleted),
		Error:  store.StringPtr(""),
	})

	log.InfoContext(ctx, "script generated",
		"duration_minutes", duration,
		"credits_spent", cost,
		"script_length", len(script))

	return Result{Script: script, CreditsSpent: cost}, nil
}

// fail mirrors a failure into the item and returns err unchanged. Missing
// items and foreign projects are not written to.
func (e *ScriptExecutor) fail(ctx context.Context, job Job, err error) error {
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, ErrUnauthenticated) {
		e.deps.setStatus(ctx, job.Task.ItemID, store.ItemFields{
			Status: store.StatusPtr(domain.GenerationStatusFailed),
			Error:  store.StringPtr(err.Error()),
		})
	}
	return err
}

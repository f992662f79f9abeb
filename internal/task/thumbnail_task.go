package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/generation"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// ThumbnailExecutor renders thumbnail variations for an item and charges one
// image credit per image produced.
type ThumbnailExecutor struct {
	deps      Deps
	generator generation.ThumbnailGenerator
}

var _ Executor = (*ThumbnailExecutor)(nil)

// NewThumbnailExecutor creates a ThumbnailExecutor.
func NewThumbnailExecutor(deps Deps, generator generation.ThumbnailGenerator) (*ThumbnailExecutor, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, errors.New("thumbnail generator cannot be nil")
	}
	return &ThumbnailExecutor{deps: deps, generator: generator}, nil
}

// Execute runs the thumbnail rule. Variations are rendered one after
// another; failed renders are skipped, and the task is charged for exactly
// the images it delivers. Once the queue is cancelled no further variation
// is started, but the images already produced are still paid for and kept.
func (e *ThumbnailExecutor) Execute(ctx context.Context, job Job) (Result, error) {
	log := e.deps.log(ctx)
	cfg := job.Task.Config
	variations := cfg.EffectiveVariations()

	_, item, err := e.deps.loadTarget(ctx, job)
	if err != nil {
		return Result{}, e.fail(ctx, job, err)
	}

	balance, err := e.deps.Ledger.Balance(ctx, job.PrincipalID, domain.CurrencyImage)
	if err != nil {
		return Result{}, e.fail(ctx, job, fmt.Errorf("failed to read balance: %w", err))
	}
	if balance < variations {
		return Result{}, e.fail(ctx, job, fmt.Errorf("%w: %d variations requested, %d image credits available",
			ErrInsufficientBalance, variations, balance))
	}

	e.deps.setStatus(ctx, item.ID, store.ItemFields{
		ThumbStatus: store.StatusPtr(domain.GenerationStatusGenerating),
		ThumbError:  store.StringPtr(""),
	})

	title := cfg.Title
	if title == "" {
		title = item.Title
	}

	prompt, err := e.resolvePrompt(ctx, cfg, title, item.Script)
	if err != nil {
		return Result{}, e.fail(ctx, job, err)
	}

	produced := make([]string, 0, variations)
	var lastErr error
	for i := 0; i < variations; i++ {
		if i > 0 && job.cancelled() {
			log.InfoContext(ctx, "queue cancelled, skipping remaining variations",
				"produced", len(produced),
				"requested", variations)
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		backendCtx, cancel := e.deps.backendContext(ctx)
		image, err := e.generator.GenerateThumbnail(backendCtx, generation.ThumbnailParams{
			Prompt: prompt,
			Style:  cfg.Style,
			Title:  title,
		})
		cancel()
		if err != nil {
			lastErr = err
			log.WarnContext(ctx, "thumbnail variation failed",
				"variation", i+1,
				"error", err)
			continue
		}
		produced = append(produced, image)
	}

	if len(produced) == 0 {
		if lastErr == nil {
			lastErr = ErrEmptyResult
		}
		return Result{}, e.fail(ctx, job, lastErr)
	}

	if err := e.deps.deduct(ctx, job.PrincipalID, domain.CurrencyImage, len(produced)); err != nil {
		return Result{}, e.fail(ctx, job, err)
	}

	thumbnails := make([]string, 0, len(produced)+len(item.Thumbnails))
	thumbnails = append(thumbnails, produced...)
	thumbnails = append(thumbnails, item.Thumbnails...)

	e.deps.setStatus(ctx, item.ID, store.ItemFields{
		Thumbnails:  thumbnails,
		ThumbStatus: store.StatusPtr(domain.GenerationStatusCompleted),
		ThumbPrompt: store.StringPtr(prompt),
		ThumbError:  store.StringPtr(""),
	})

	log.InfoContext(ctx, "thumbnails generated",
		"produced", len(produced),
		"requested", variations)

	return Result{Thumbnails: produced, Prompt: prompt, CreditsSpent: len(produced)}, nil
}

func (e *ThumbnailExecutor) resolvePrompt(ctx context.Context, cfg Config, title, script string) (string, error) {
	if cfg.EffectiveMode() == PromptModeManual {
		if cfg.Prompt == "" {
			return "", fmt.Errorf("%w: manual mode requires a prompt", generation.ErrInvalidParams)
		}
		return cfg.Prompt, nil
	}

	backendCtx, cancel := e.deps.backendContext(ctx)
	defer cancel()
	prompt, err := e.generator.DeriveScenePrompt(backendCtx, title, script)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		return "", ErrEmptyResult
	}
	return prompt, nil
}

func (e *ThumbnailExecutor) fail(ctx context.Context, job Job, err error) error {
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, ErrUnauthenticated) {
		e.deps.setStatus(ctx, job.Task.ItemID, store.ItemFields{
			ThumbStatus: store.StatusPtr(domain.GenerationStatusFailed),
			ThumbError:  store.StringPtr(err.Error()),
		})
	}
	return err
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/reelsmith-api/internal/generation"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// isPermanent reports whether an error must not be retried.
func isPermanent(err error) bool {
	return errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, generation.ErrInvalidResponse) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs call until it succeeds, fails permanently, or the retry
// budget is spent. The delay before retry n is baseDelay * 2^n scaled by a
// jitter factor in [0.5, 1.0).
func (g *Generator) withRetry(ctx context.Context, op string, call func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "Making Gemini API call",
			"operation", op,
			"attempt", attemptNum,
			"max_attempts", g.maxRetries+1)

		err := call(ctx)
		if err == nil {
			return nil
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			"operation", op,
			"attempt", attemptNum,
			"error", err)

		if isPermanent(err) {
			return err
		}
		if attempt >= g.maxRetries {
			return fmt.Errorf("%w: %s exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, op, g.maxRetries, err)
		}

		backoff := float64(g.baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + g.jitter()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// InterruptedMessage is the error recorded on items whose generation was
// cut short by a restart.
const InterruptedMessage = "interrupted: generation did not finish, please retry"

// RecoverInterrupted marks items still "generating" after olderThan as
// failed, except the running items. Queues live in memory, so no task
// survives a restart to finish them; the user retries explicitly.
func RecoverInterrupted(
	ctx context.Context,
	items store.ItemStore,
	olderThan time.Duration,
	running []uuid.UUID,
	logger *slog.Logger,
) (int64, error) {
	n, err := items.FailInterrupted(ctx, olderThan, InterruptedMessage, running)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted items: %w", err)
	}
	if n > 0 {
		logger.InfoContext(ctx, "recovered interrupted items",
			"count", n,
			"older_than", olderThan)
	} else {
		logger.DebugContext(ctx, "no interrupted items found", "older_than", olderThan)
	}
	return n, nil
}

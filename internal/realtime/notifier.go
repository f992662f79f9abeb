package realtime

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

// QueueNotifier publishes every queue snapshot on the principal's queue
// channel. It implements task.Observer.
type QueueNotifier struct {
	bus    Bus
	logger *slog.Logger
}

var _ task.Observer = (*QueueNotifier)(nil)

// NewQueueNotifier creates a QueueNotifier.
func NewQueueNotifier(bus Bus, logger *slog.Logger) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{bus: bus, logger: logger.With("component", "queue_notifier")}
}

// QueueChanged implements task.Observer
func (n *QueueNotifier) QueueChanged(ctx context.Context, snap task.Snapshot) {
	if err := n.bus.Publish(ctx, QueueMessage(snap)); err != nil {
		n.logger.WarnContext(ctx, "failed to publish queue snapshot",
			"principal_id", snap.PrincipalID,
			"error", err)
	}
}

// QueueMessage wraps a snapshot for its principal's queue channel.
func QueueMessage(snap task.Snapshot) Message {
	return Message{
		Channel: QueueChannel(snap.PrincipalID),
		Event:   EventQueueUpdated,
		Data:    snap,
	}
}

// ItemUpdate carries the payload of a completed task so a live view can
// show fresh content without refetching the item.
type ItemUpdate struct {
	TaskID    uuid.UUID   `json:"task_id"`
	ItemID    uuid.UUID   `json:"item_id"`
	ProjectID uuid.UUID   `json:"project_id"`
	Kind      task.Kind   `json:"kind"`
	Result    task.Result `json:"result"`
}

// ItemMessage wraps a completed task's payload for its principal's queue
// channel.
func ItemMessage(principalID uuid.UUID, t task.Task, result task.Result) Message {
	return Message{
		Channel: QueueChannel(principalID),
		Event:   EventItemUpdated,
		Data: ItemUpdate{
			TaskID:    t.ID,
			ItemID:    t.ItemID,
			ProjectID: t.ProjectID,
			Kind:      t.Kind,
			Result:    result,
		},
	}
}

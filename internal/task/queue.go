package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
)

// Snapshot is a consistent copy of a queue's state.
type Snapshot struct {
	PrincipalID   uuid.UUID `json:"principal_id"`
	Tasks         []Task    `json:"tasks"`
	IsProcessing  bool      `json:"is_processing"`
	CurrentTaskID uuid.UUID `json:"current_task_id"`
	Stats         Stats     `json:"stats"`
}

// Queue is the FIFO task queue of one principal. All tasks run on a single
// worker goroutine, one at a time, in insertion order.
type Queue struct {
	principalID uuid.UUID
	executors   map[Kind]Executor
	refresher   ProfileRefresher
	logger      *slog.Logger

	mu           sync.Mutex
	tasks        []*Task
	isProcessing bool
	currentID    uuid.UUID
	// runningItem is the item whose executor is running. Unlike currentID
	// it survives cancel and clear until the task settles.
	runningItem uuid.UUID
	// epoch changes on every cancel and clear. A worker compares it with
	// the value it started with to learn whether its task was cancelled.
	epoch   uint64
	closed  bool
	subs    map[int]chan Snapshot
	nextSub int

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue creates a queue for principalID. executors must not be modified
// afterwards. refresher may be nil.
func NewQueue(
	principalID uuid.UUID,
	executors map[Kind]Executor,
	refresher ProfileRefresher,
	log *slog.Logger,
) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		principalID: principalID,
		executors:   executors,
		refresher:   refresher,
		logger:      log.With("component", "task_queue", "principal_id", principalID),
		subs:        make(map[int]chan Snapshot),
		wake:        make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine. It returns immediately.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done != nil || q.closed {
		return
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.run(ctx)
	q.logger.Debug("task queue started")
}

// Stop shuts the worker down and waits for it. A task in flight sees its
// context cancelled. Subscriber channels are closed.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	cancel, done := q.cancel, q.done
	for id, ch := range q.subs {
		close(ch)
		delete(q.subs, id)
	}
	q.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	q.logger.Debug("task queue stopped")
}

// Enqueue appends one pending task per item ID to the tail of the queue and
// wakes the worker. Each task's config is a copy of cfg with Title set to
// the item's current title in project. It returns the new task IDs.
func (q *Queue) Enqueue(
	project domain.Project,
	itemIDs []uuid.UUID,
	kind Kind,
	cfg Config,
	onSuccess SuccessFunc,
) ([]uuid.UUID, error) {
	if _, ok := q.executors[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	now := time.Now().UTC()
	ids := make([]uuid.UUID, 0, len(itemIDs))

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	for _, itemID := range itemIDs {
		taskCfg := cfg.clone()
		if item, ok := project.FindItem(itemID); ok {
			taskCfg.Title = item.Title
		}
		t := &Task{
			ID:         uuid.New(),
			ItemID:     itemID,
			ProjectID:  project.ID,
			Kind:       kind,
			Status:     StatusPending,
			Config:     taskCfg,
			EnqueuedAt: now,
			onSuccess:  onSuccess,
		}
		q.tasks = append(q.tasks, t)
		ids = append(ids, t.ID)
	}
	q.publishLocked()
	q.mu.Unlock()

	q.logger.Info("tasks enqueued",
		"project_id", project.ID,
		"kind", kind,
		"count", len(ids))

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return ids, nil
}

// CancelQueue stops the queue from starting new work. Every pending task
// becomes cancelled and the queue reports itself idle at once; a task that
// is already running is left to settle on its own.
func (q *Queue) CancelQueue() {
	now := time.Now().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()

	cancelled := 0
	for _, t := range q.tasks {
		if t.Status == StatusPending {
			t.Status = StatusCancelled
			t.SettledAt = &now
			cancelled++
		}
	}
	q.isProcessing = false
	q.currentID = uuid.Nil
	q.epoch++
	q.publishLocked()

	q.logger.Info("task queue cancelled", "cancelled_tasks", cancelled)
}

// ClearQueue removes every task and resets the queue to its zero state. It
// is safe to call while a task is running; that task's outcome is dropped.
func (q *Queue) ClearQueue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := len(q.tasks)
	q.tasks = nil
	q.isProcessing = false
	q.currentID = uuid.Nil
	q.epoch++
	q.publishLocked()

	q.logger.Info("task queue cleared", "removed_tasks", removed)
}

// GetTaskStatus returns the most recently enqueued task for itemID and kind.
func (q *Queue) GetTaskStatus(itemID uuid.UUID, kind Kind) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := len(q.tasks) - 1; i >= 0; i-- {
		if t := q.tasks[i]; t.ItemID == itemID && t.Kind == kind {
			return *t, true
		}
	}
	return Task{}, false
}

// IsProjectBusy reports whether any task of projectID is pending or running.
func (q *Queue) IsProjectBusy(projectID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.ProjectID == projectID && !t.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the queue state.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe returns a channel that receives the current snapshot and then
// one snapshot per change. Slow readers only see the latest state. The
// returned function unsubscribes and closes the channel.
func (q *Queue) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if _, ok := q.subs[id]; ok {
				delete(q.subs, id)
				close(ch)
			}
		})
	}
}

func (q *Queue) snapshotLocked() Snapshot {
	tasks := make([]Task, len(q.tasks))
	for i, t := range q.tasks {
		tasks[i] = *t
	}
	return Snapshot{
		PrincipalID:   q.principalID,
		Tasks:         tasks,
		IsProcessing:  q.isProcessing,
		CurrentTaskID: q.currentID,
		Stats:         computeStats(q.tasks),
	}
}

// publishLocked delivers the current state to every subscriber, replacing
// any snapshot the subscriber has not read yet.
func (q *Queue) publishLocked() {
	if len(q.subs) == 0 {
		return
	}
	snap := q.snapshotLocked()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// run is the worker loop.
func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	for {
		t, epoch, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		q.process(ctx, t, epoch)
		if ctx.Err() != nil {
			return
		}
	}
}

// next claims the first pending task in insertion order and marks it
// processing.
func (q *Queue) next() (*Task, uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.Status != StatusPending {
			continue
		}
		now := time.Now().UTC()
		t.Status = StatusProcessing
		t.StartedAt = &now
		q.isProcessing = true
		q.currentID = t.ID
		q.runningItem = t.ItemID
		q.publishLocked()
		return t, q.epoch, true
	}
	return nil, 0, false
}

// running returns the item whose generation is in flight, if any.
func (q *Queue) running() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.runningItem, q.runningItem != uuid.Nil
}

func (q *Queue) cancelledSince(epoch uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.epoch != epoch
}

// process runs one claimed task and settles it.
func (q *Queue) process(ctx context.Context, t *Task, epoch uint64) {
	q.mu.Lock()
	job := Job{
		Task:        *t,
		PrincipalID: q.principalID,
		Cancelled:   func() bool { return q.cancelledSince(epoch) },
	}
	q.mu.Unlock()

	log := q.logger.With(
		"task_id", job.Task.ID,
		"task_kind", job.Task.Kind,
		"item_id", job.Task.ItemID,
	)
	ctx = logger.WithLogger(ctx, log)
	log.InfoContext(ctx, "processing task")

	result, err := q.execute(ctx, job)

	status := StatusCompleted
	errMsg := ""
	if err != nil {
		status = StatusFailed
		errMsg = err.Error()
		log.WarnContext(ctx, "task failed", "error", err)
	} else {
		log.InfoContext(ctx, "task completed", "credits_spent", result.CreditsSpent)
	}

	if status == StatusCompleted && job.Task.onSuccess != nil && !q.cancelledSince(epoch) {
		q.callSuccess(ctx, job.Task, result)
	}

	if q.refresher != nil {
		if err := q.refresher.RefreshProfile(context.WithoutCancel(ctx), q.principalID); err != nil {
			log.ErrorContext(ctx, "failed to refresh profile", "error", err)
		}
	}

	q.settle(t, epoch, status, errMsg)
}

// execute runs the task's executor, converting a panic into an error.
func (q *Queue) execute(ctx context.Context, job Job) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return q.executors[job.Task.Kind].Execute(ctx, job)
}

func (q *Queue) callSuccess(ctx context.Context, t Task, result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).ErrorContext(ctx, "success callback panicked", "panic", r)
		}
	}()
	t.onSuccess(t, result)
}

// settle records a task's final status. The queue's processing flags are
// only reset when no cancel or clear happened while the task ran; after a
// clear the task is no longer listed and the write is invisible.
func (q *Queue) settle(t *Task, epoch uint64, status Status, errMsg string) {
	now := time.Now().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()

	t.Status = status
	t.Error = errMsg
	t.SettledAt = &now
	q.runningItem = uuid.Nil
	if q.epoch == epoch {
		q.isProcessing = false
		q.currentID = uuid.Nil
	}
	q.publishLocked()
}

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// Observer receives every snapshot of every queue the Manager owns.
type Observer interface {
	QueueChanged(ctx context.Context, snap Snapshot)
}

// ManagerConfig holds configuration for the queue manager
type ManagerConfig struct {
	// RecoverOnStart fails items left "generating" by a previous process.
	RecoverOnStart bool

	// StuckItemAge is how long an item must have been generating before
	// recovery treats it as interrupted.
	StuckItemAge time.Duration

	// StuckItemCheckInterval is how often recovery runs again after Start.
	// Items whose task is running in one of the manager's queues are
	// skipped. Zero disables the periodic check.
	StuckItemCheckInterval time.Duration
}

// DefaultManagerConfig returns a ManagerConfig with reasonable defaults
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		RecoverOnStart:         true,
		StuckItemAge:           15 * time.Minute,
		StuckItemCheckInterval: time.Minute,
	}
}

// Manager owns one Queue per principal, created on first use.
type Manager struct {
	config    ManagerConfig
	items     store.ItemStore
	refresher ProfileRefresher
	observer  Observer
	logger    *slog.Logger

	mu        sync.Mutex
	executors map[Kind]Executor
	queues    map[uuid.UUID]*Queue
	ctx       context.Context
	cancel    context.CancelFunc
	quit      chan struct{}
	started   bool
	stopped   bool
	wg        sync.WaitGroup
}

// NewManager creates a Manager. items is used for startup recovery;
// refresher and observer may be nil.
func NewManager(
	config ManagerConfig,
	items store.ItemStore,
	refresher ProfileRefresher,
	observer Observer,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config:    config,
		items:     items,
		refresher: refresher,
		observer:  observer,
		logger:    logger.With("component", "task_manager"),
		executors: make(map[Kind]Executor),
		queues:    make(map[uuid.UUID]*Queue),
	}
}

// Register binds an executor to a kind. It must be called before Start.
func (m *Manager) Register(kind Kind, executor Executor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("executors must be registered before the manager starts")
	}
	if executor == nil {
		return fmt.Errorf("executor for %q cannot be nil", kind)
	}
	m.executors[kind] = executor
	return nil
}

// Supports reports whether an executor is registered for kind.
func (m *Manager) Supports(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.executors[kind]
	return ok
}

// Start recovers interrupted items, if configured, and enables queue
// creation. Queues run until Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("task manager already started")
	}
	if m.stopped {
		return errors.New("task manager stopped")
	}

	if m.config.RecoverOnStart && m.items != nil {
		// No queue exists yet, so nothing is running.
		if _, err := RecoverInterrupted(ctx, m.items, m.config.StuckItemAge, nil, m.logger); err != nil {
			return fmt.Errorf("failed to recover interrupted items: %w", err)
		}
	}

	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.quit = make(chan struct{})
	m.started = true

	if m.items != nil && m.config.StuckItemCheckInterval > 0 {
		m.wg.Add(1)
		go m.monitorStuckItems(m.config.StuckItemCheckInterval)
	}
	m.logger.Info("task manager started", "kinds", len(m.executors))
	return nil
}

// monitorStuckItems runs recovery every interval until Stop.
func (m *Manager) monitorStuckItems(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("stuck item monitor started", "interval", interval, "age", m.config.StuckItemAge)
	for {
		select {
		case <-m.quit:
			m.logger.Info("stuck item monitor stopped")
			return
		case <-ticker.C:
			if _, err := RecoverInterrupted(m.ctx, m.items, m.config.StuckItemAge, m.runningItems(), m.logger); err != nil {
				m.logger.Error("stuck item check failed", "error", err)
			}
		}
	}
}

// runningItems lists the items whose generation is in flight in any queue.
func (m *Manager) runningItems() []uuid.UUID {
	m.mu.Lock()
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	var ids []uuid.UUID
	for _, q := range queues {
		if id, ok := q.running(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Queue returns the principal's queue, creating and starting it if needed.
func (m *Manager) Queue(principalID uuid.UUID) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.stopped {
		return nil, ErrQueueClosed
	}
	if q, ok := m.queues[principalID]; ok {
		return q, nil
	}

	q := NewQueue(principalID, m.executors, m.refresher, m.logger)
	q.Start(m.ctx)
	m.queues[principalID] = q

	if m.observer != nil {
		snaps, _ := q.Subscribe()
		m.wg.Add(1)
		go m.forward(snaps)
	}
	return q, nil
}

// Lookup returns the principal's queue without creating one.
func (m *Manager) Lookup(principalID uuid.UUID) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[principalID]
	return q, ok
}

// forward relays a queue's snapshots to the observer until the queue stops.
func (m *Manager) forward(snaps <-chan Snapshot) {
	defer m.wg.Done()
	for snap := range snaps {
		m.observer.QueueChanged(m.ctx, snap)
	}
}

// Stop stops every queue and waits for their workers and forwarders.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.quit != nil {
		close(m.quit)
	}
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	for _, q := range queues {
		q.Stop()
	}
	m.wg.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.logger.Info("task manager stopped", "queues", len(queues))
}

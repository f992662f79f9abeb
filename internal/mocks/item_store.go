package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// SetStatusCall records one SetStatus invocation.
type SetStatusCall struct {
	ItemID uuid.UUID
	Fields store.ItemFields
}

// MockItemStore implements store.ItemStore over an in-memory map.
type MockItemStore struct {
	GetItemFn         func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	ListItemsFn       func(ctx context.Context, projectID uuid.UUID) ([]domain.Item, error)
	SetStatusFn       func(ctx context.Context, id uuid.UUID, fields store.ItemFields) error
	FailInterruptedFn func(ctx context.Context, olderThan time.Duration, message string, skip []uuid.UUID) (int64, error)

	mu             sync.Mutex
	items          map[uuid.UUID]domain.Item
	order          []uuid.UUID
	setStatusCalls []SetStatusCall
}

var _ store.ItemStore = (*MockItemStore)(nil)

// NewMockItemStore creates a MockItemStore seeded with items.
func NewMockItemStore(items ...domain.Item) *MockItemStore {
	m := &MockItemStore{items: make(map[uuid.UUID]domain.Item)}
	for _, it := range items {
		m.Put(it)
	}
	return m
}

// Put inserts or replaces an item.
func (m *MockItemStore) Put(item domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		m.order = append(m.order, item.ID)
	}
	m.items[item.ID] = item
}

// Item returns the stored copy of an item.
func (m *MockItemStore) Item(id uuid.UUID) (domain.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

// SetStatusCalls returns every recorded SetStatus call.
func (m *MockItemStore) SetStatusCalls() []SetStatusCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SetStatusCall(nil), m.setStatusCalls...)
}

// GetItem implements store.ItemStore
func (m *MockItemStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if m.GetItemFn != nil {
		return m.GetItemFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	it.Thumbnails = append([]string(nil), it.Thumbnails...)
	return &it, nil
}

// ListItems implements store.ItemStore
func (m *MockItemStore) ListItems(ctx context.Context, projectID uuid.UUID) ([]domain.Item, error) {
	if m.ListItemsFn != nil {
		return m.ListItemsFn(ctx, projectID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Item
	for _, id := range m.order {
		if it := m.items[id]; it.ProjectID == projectID {
			out = append(out, it)
		}
	}
	return out, nil
}

// SetStatus implements store.ItemStore
func (m *MockItemStore) SetStatus(ctx context.Context, id uuid.UUID, fields store.ItemFields) error {
	m.mu.Lock()
	m.setStatusCalls = append(m.setStatusCalls, SetStatusCall{ItemID: id, Fields: fields})
	m.mu.Unlock()

	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, id, fields)
	}
	if fields.IsEmpty() {
		return store.ErrEmptyUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	applyFields(&it, fields)
	m.items[id] = it
	return nil
}

// FailInterrupted implements store.ItemStore
func (m *MockItemStore) FailInterrupted(
	ctx context.Context,
	olderThan time.Duration,
	message string,
	skip []uuid.UUID,
) (int64, error) {
	if m.FailInterruptedFn != nil {
		return m.FailInterruptedFn(ctx, olderThan, message, skip)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	skipped := make(map[uuid.UUID]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	cutoff := time.Now().Add(-olderThan)
	var n int64
	for id, it := range m.items {
		if skipped[id] || !it.UpdatedAt.Before(cutoff) {
			continue
		}
		changed := false
		if it.Status == domain.GenerationStatusGenerating {
			it.Status, it.Error = domain.GenerationStatusFailed, message
			changed = true
		}
		if it.ThumbStatus == domain.GenerationStatusGenerating {
			it.ThumbStatus, it.ThumbError = domain.GenerationStatusFailed, message
			changed = true
		}
		if changed {
			m.items[id] = it
			n++
		}
	}
	return n, nil
}

func applyFields(it *domain.Item, f store.ItemFields) {
	if f.Status != nil {
		it.Status = *f.Status
	}
	if f.Error != nil {
		it.Error = *f.Error
	}
	if f.Script != nil {
		it.Script = *f.Script
	}
	if f.ThumbStatus != nil {
		it.ThumbStatus = *f.ThumbStatus
	}
	if f.ThumbError != nil {
		it.ThumbError = *f.ThumbError
	}
	if f.ThumbPrompt != nil {
		it.ThumbPrompt = *f.ThumbPrompt
	}
	if f.Thumbnails != nil {
		it.Thumbnails = append([]string(nil), f.Thumbnails...)
	}
	it.UpdatedAt = time.Now().UTC()
}

package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// MockProjectStore implements store.ProjectStore over an in-memory map.
type MockProjectStore struct {
	GetProjectFn func(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	mu       sync.Mutex
	projects map[uuid.UUID]domain.Project
}

var _ store.ProjectStore = (*MockProjectStore)(nil)

// NewMockProjectStore creates a MockProjectStore seeded with projects.
func NewMockProjectStore(projects ...domain.Project) *MockProjectStore {
	m := &MockProjectStore{projects: make(map[uuid.UUID]domain.Project)}
	for _, p := range projects {
		m.Put(p)
	}
	return m
}

// Put inserts or replaces a project.
func (m *MockProjectStore) Put(p domain.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

// GetProject implements store.ProjectStore
func (m *MockProjectStore) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	if m.GetProjectFn != nil {
		return m.GetProjectFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	p.Items = nil
	return &p, nil
}

// MockProfileStore implements store.ProfileStore over an in-memory map.
type MockProfileStore struct {
	GetProfileFn func(ctx context.Context, principalID uuid.UUID) (*domain.Profile, error)

	mu       sync.Mutex
	profiles map[uuid.UUID]domain.Profile
}

var _ store.ProfileStore = (*MockProfileStore)(nil)

// NewMockProfileStore creates a MockProfileStore seeded with profiles.
func NewMockProfileStore(profiles ...domain.Profile) *MockProfileStore {
	m := &MockProfileStore{profiles: make(map[uuid.UUID]domain.Profile)}
	for _, p := range profiles {
		m.profiles[p.PrincipalID] = p
	}
	return m
}

// GetProfile implements store.ProfileStore
func (m *MockProfileStore) GetProfile(ctx context.Context, principalID uuid.UUID) (*domain.Profile, error) {
	if m.GetProfileFn != nil {
		return m.GetProfileFn(ctx, principalID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[principalID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	return &p, nil
}

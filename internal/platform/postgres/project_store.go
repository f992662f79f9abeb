package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// PostgresProjectStore implements store.ProjectStore using PostgreSQL.
type PostgresProjectStore struct {
	db store.DBTX
}

var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// NewPostgresProjectStore creates a new PostgresProjectStore.
func NewPostgresProjectStore(db store.DBTX) *PostgresProjectStore {
	return &PostgresProjectStore{db: db}
}

// GetProject implements store.ProjectStore
func (s *PostgresProjectStore) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, niche, tone, structure, duration_minutes, template,
			created_at, updated_at
		FROM projects
		WHERE id = $1`, id).Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Settings.Niche,
		&p.Settings.Tone,
		&p.Settings.Structure,
		&p.Settings.DurationMinutes,
		&p.Settings.Template,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err, store.ErrProjectNotFound)
	}
	return &p, nil
}

// CreateProject inserts a project without its items.
func (s *PostgresProjectStore) CreateProject(ctx context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, niche, tone, structure, duration_minutes,
			template, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OwnerID, p.Name,
		p.Settings.Niche, p.Settings.Tone, p.Settings.Structure,
		p.Settings.DurationMinutes, p.Settings.Template,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", MapError(err, nil))
	}
	return nil
}

// PostgresProfileStore implements store.ProfileStore using PostgreSQL.
type PostgresProfileStore struct {
	db store.DBTX
}

var _ store.ProfileStore = (*PostgresProfileStore)(nil)

// NewPostgresProfileStore creates a new PostgresProfileStore.
func NewPostgresProfileStore(db store.DBTX) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// GetProfile implements store.ProfileStore
func (s *PostgresProfileStore) GetProfile(ctx context.Context, principalID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT principal_id, plan, minutes_per_credit
		FROM profiles
		WHERE principal_id = $1`, principalID).Scan(&p.PrincipalID, &p.Plan, &p.MinutesPerCredit)
	if err != nil {
		return nil, MapError(err, store.ErrProfileNotFound)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a principal's plan.
func (s *PostgresProfileStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	if p.PrincipalID == uuid.Nil {
		return fmt.Errorf("%w: principal ID cannot be empty", store.ErrInvalidEntity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (principal_id, plan, minutes_per_credit)
		VALUES ($1, $2, $3)
		ON CONFLICT (principal_id)
		DO UPDATE SET plan = EXCLUDED.plan,
			minutes_per_credit = EXCLUDED.minutes_per_credit,
			updated_at = NOW()`,
		p.PrincipalID, p.Plan, p.MinutesPerCredit)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", MapError(err, nil))
	}
	return nil
}

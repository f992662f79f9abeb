package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

const itemColumns = `id, project_id, title, script, status, error, thumbnails,
	thumb_status, thumb_prompt, thumb_error, created_at, updated_at`

// PostgresItemStore implements store.ItemStore using PostgreSQL.
type PostgresItemStore struct {
	db store.DBTX
}

var _ store.ItemStore = (*PostgresItemStore)(nil)

// NewPostgresItemStore creates a new PostgresItemStore over a pool or transaction.
func NewPostgresItemStore(db store.DBTX) *PostgresItemStore {
	return &PostgresItemStore{db: db}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresItemStore) WithTx(tx *sql.Tx) *PostgresItemStore {
	return &PostgresItemStore{db: tx}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item       domain.Item
		thumbnails []byte
	)
	err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.Title,
		&item.Script,
		&item.Status,
		&item.Error,
		&thumbnails,
		&item.ThumbStatus,
		&item.ThumbPrompt,
		&item.ThumbError,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(thumbnails) > 0 {
		if err := sonic.Unmarshal(thumbnails, &item.Thumbnails); err != nil {
			return nil, fmt.Errorf("failed to decode thumbnails of item %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

// GetItem implements store.ItemStore
func (s *PostgresItemStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, MapError(err, store.ErrItemNotFound)
	}
	return item, nil
}

// ListItems implements store.ItemStore
func (s *PostgresItemStore) ListItems(ctx context.Context, projectID uuid.UUID) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE project_id = $1 ORDER BY created_at ASC, id ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", MapError(err, nil))
	}
	defer func() { _ = rows.Close() }()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// CreateItem inserts a new item. It is used by seeding and integration tests;
// item authoring is owned by the project editor.
func (s *PostgresItemStore) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	thumbnails, err := encodeThumbnails(item.Thumbnails)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)`,
		item.ID, item.ProjectID, item.Title, item.Script, item.Status, item.Error,
		thumbnails, item.ThumbStatus, item.ThumbPrompt, item.ThumbError,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", MapError(err, nil))
	}
	return nil
}

// SetStatus implements store.ItemStore
func (s *PostgresItemStore) SetStatus(ctx context.Context, id uuid.UUID, fields store.ItemFields) error {
	if fields.IsEmpty() {
		return store.ErrEmptyUpdate
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any, cast string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, len(args), cast))
	}
	if fields.Status != nil {
		add("status", string(*fields.Status), "")
	}
	if fields.Error != nil {
		add("error", *fields.Error, "")
	}
	if fields.Script != nil {
		add("script", *fields.Script, "")
	}
	if fields.ThumbStatus != nil {
		add("thumb_status", string(*fields.ThumbStatus), "")
	}
	if fields.ThumbError != nil {
		add("thumb_error", *fields.ThumbError, "")
	}
	if fields.ThumbPrompt != nil {
		add("thumb_prompt", *fields.ThumbPrompt, "")
	}
	if fields.Thumbnails != nil {
		thumbnails, err := encodeThumbnails(fields.Thumbnails)
		if err != nil {
			return err
		}
		add("thumbnails", thumbnails, "::jsonb")
	}
	add("updated_at", time.Now().UTC(), "")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE items SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update item status",
			"item_id", id,
			"error", err)
		return store.NewStoreError("item", "set_status", "update failed", MapError(err, nil))
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// FailInterrupted implements store.ItemStore
func (s *PostgresItemStore) FailInterrupted(
	ctx context.Context,
	olderThan time.Duration,
	message string,
	skip []uuid.UUID,
) (int64, error) {
	// Right-hand sides see the pre-update row, so each CASE tests the old status.
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			status       = CASE WHEN status = 'generating' THEN 'failed' ELSE status END,
			error        = CASE WHEN status = 'generating' THEN $1 ELSE error END,
			thumb_status = CASE WHEN thumb_status = 'generating' THEN 'failed' ELSE thumb_status END,
			thumb_error  = CASE WHEN thumb_status = 'generating' THEN $1 ELSE thumb_error END,
			updated_at   = $2
		WHERE (status = 'generating' OR thumb_status = 'generating')
			AND updated_at < $3
			AND NOT (id = ANY(string_to_array($4, ',')::uuid[]))`,
		message,
		time.Now().UTC(),
		time.Now().UTC().Add(-olderThan),
		joinIDs(skip),
	)
	if err != nil {
		return 0, store.NewStoreError("item", "fail_interrupted", "update failed", MapError(err, nil))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// joinIDs renders ids as a comma separated list for string_to_array.
func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func encodeThumbnails(thumbnails []string) (string, error) {
	if thumbnails == nil {
		thumbnails = []string{}
	}
	data, err := sonic.Marshal(thumbnails)
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnails: %w", err)
	}
	return string(data), nil
}

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/platform/postgres"
	"github.com/phrazzld/reelsmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemRowColumns = []string{
	"id", "project_id", "title", "script", "status", "error", "thumbnails",
	"thumb_status", "thumb_prompt", "thumb_error", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresItemStore_GetItem(t *testing.T) {
	t.Parallel()

	t.Run("decodes row", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		id, projectID := uuid.New(), uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`SELECT .* FROM items WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(itemRowColumns).AddRow(
				id.String(), projectID.String(), "Episode 1", "the script", "completed", "",
				[]byte(`["data:image/png;base64,AAA","data:image/png;base64,BBB"]`),
				"failed", "a lighthouse", "backend down", now, now,
			))

		item, err := s.GetItem(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, item.ID)
		assert.Equal(t, projectID, item.ProjectID)
		assert.Equal(t, domain.GenerationStatusCompleted, item.Status)
		assert.Equal(t, domain.GenerationStatusFailed, item.ThumbStatus)
		assert.Equal(t, []string{"data:image/png;base64,AAA", "data:image/png;base64,BBB"}, item.Thumbnails)
		assert.Equal(t, "backend down", item.ThumbError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing item", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		mock.ExpectQuery(`SELECT .* FROM items WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err := s.GetItem(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrItemNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})
}

func TestPostgresItemStore_ListItems(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := postgres.NewPostgresItemStore(db)

	projectID := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows(itemRowColumns).
		AddRow(uuid.NewString(), projectID.String(), "First", "", "idle", "", []byte(`[]`), "idle", "", "", now, now).
		AddRow(uuid.NewString(), projectID.String(), "Second", "", "generating", "", []byte(`[]`), "idle", "", "", now, now)
	mock.ExpectQuery(`SELECT .* FROM items WHERE project_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs(projectID).
		WillReturnRows(rows)

	items, err := s.ListItems(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, domain.GenerationStatusGenerating, items[1].Status)
	assert.Empty(t, items[0].Thumbnails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresItemStore_SetStatus(t *testing.T) {
	t.Parallel()

	t.Run("writes only the given fields", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		id := uuid.New()
		mock.ExpectExec(regexp.QuoteMeta(
			`UPDATE items SET status = $1, script = $2, updated_at = $3 WHERE id = $4`)).
			WithArgs("completed", "hello world", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SetStatus(context.Background(), id, store.ItemFields{
			Status: store.StatusPtr(domain.GenerationStatusCompleted),
			Script: store.StringPtr("hello world"),
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("encodes thumbnails as jsonb", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		id := uuid.New()
		mock.ExpectExec(regexp.QuoteMeta(
			`UPDATE items SET thumb_status = $1, thumb_prompt = $2, thumbnails = $3::jsonb, updated_at = $4 WHERE id = $5`)).
			WithArgs("completed", "a lighthouse", `["new","old"]`, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SetStatus(context.Background(), id, store.ItemFields{
			ThumbStatus: store.StatusPtr(domain.GenerationStatusCompleted),
			ThumbPrompt: store.StringPtr("a lighthouse"),
			Thumbnails:  []string{"new", "old"},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing item", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		mock.ExpectExec(`UPDATE items SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.SetStatus(context.Background(), uuid.New(), store.ItemFields{
			Error: store.StringPtr("boom"),
		})
		assert.ErrorIs(t, err, store.ErrItemNotFound)
	})

	t.Run("empty update", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		err := s.SetStatus(context.Background(), uuid.New(), store.ItemFields{})
		assert.ErrorIs(t, err, store.ErrEmptyUpdate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresItemStore(db)

		mock.ExpectExec(`UPDATE items SET`).WillReturnError(errors.New("connection reset"))

		err := s.SetStatus(context.Background(), uuid.New(), store.ItemFields{
			Status: store.StatusPtr(domain.GenerationStatusFailed),
		})
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "set_status", storeErr.Operation)
	})
}

func TestPostgresItemStore_FailInterrupted(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := postgres.NewPostgresItemStore(db)

	live := []uuid.UUID{uuid.New(), uuid.New()}
	mock.ExpectExec(`UPDATE items SET .* WHERE \(status = 'generating' OR thumb_status = 'generating'\)`).
		WithArgs("interrupted", sqlmock.AnyArg(), sqlmock.AnyArg(), live[0].String()+","+live[1].String()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.FailInterrupted(context.Background(), 15*time.Minute, "interrupted", live)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresItemStore_CreateItemValidates(t *testing.T) {
	t.Parallel()

	db, _ := newMock(t)
	s := postgres.NewPostgresItemStore(db)

	err := s.CreateItem(context.Background(), &domain.Item{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLedger_TryDeduct(t *testing.T) {
	t.Parallel()

	t.Run("sufficient balance commits", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		l := postgres.NewPostgresLedger(db)
		principal := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE credit_balances\s+SET balance = balance - \$3`).
			WithArgs(principal, "text", 2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO credit_entries`).
			WithArgs(sqlmock.AnyArg(), principal, "text", -2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, err := l.TryDeduct(context.Background(), principal, domain.CurrencyText, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls back without error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		l := postgres.NewPostgresLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE credit_balances`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		ok, err := l.TryDeduct(context.Background(), uuid.New(), domain.CurrencyImage, 5)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is an error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		l := postgres.NewPostgresLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE credit_balances`).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		ok, err := l.TryDeduct(context.Background(), uuid.New(), domain.CurrencyText, 1)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid arguments never reach the database", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		l := postgres.NewPostgresLedger(db)

		_, err := l.TryDeduct(context.Background(), uuid.New(), domain.CurrencyText, 0)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		_, err = l.TryDeduct(context.Background(), uuid.Nil, domain.CurrencyText, 1)
		assert.ErrorIs(t, err, ledger.ErrInvalidPrincipal)
		_, err = l.TryDeduct(context.Background(), uuid.New(), domain.Currency("gold"), 1)
		assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLedger_Balance(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	l := postgres.NewPostgresLedger(db)
	principal := uuid.New()

	mock.ExpectQuery(`SELECT balance FROM credit_balances`).
		WithArgs(principal, "image").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(7))
	balance, err := l.Balance(context.Background(), principal, domain.CurrencyImage)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	mock.ExpectQuery(`SELECT balance FROM credit_balances`).WillReturnError(sql.ErrNoRows)
	balance, err = l.Balance(context.Background(), uuid.New(), domain.CurrencyText)
	require.NoError(t, err, "unknown principals have a zero balance")
	assert.Zero(t, balance)
}

func TestPostgresLedger_Grant(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	l := postgres.NewPostgresLedger(db)
	principal := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credit_balances .* ON CONFLICT \(principal_id, currency\)`).
		WithArgs(principal, "text", 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO credit_entries`).
		WithArgs(sqlmock.AnyArg(), principal, "text", 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, l.Grant(context.Background(), principal, domain.CurrencyText, 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
	"github.com/phrazzld/reelsmith-api/internal/store"
)

// PostgresLedger implements ledger.Ledger over the credit_balances table.
// Every balance change is journalled in credit_entries in the same
// transaction.
type PostgresLedger struct {
	db *sql.DB
}

var (
	_ ledger.Ledger  = (*PostgresLedger)(nil)
	_ ledger.Granter = (*PostgresLedger)(nil)
)

// NewPostgresLedger creates a ledger over db.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// errInsufficient rolls back a deduction that matched no row.
var errInsufficient = errors.New("insufficient balance")

// TryDeduct implements ledger.Ledger. The conditional UPDATE makes the
// check and the decrement one atomic step.
func (l *PostgresLedger) TryDeduct(
	ctx context.Context,
	principalID uuid.UUID,
	currency domain.Currency,
	amount int,
) (bool, error) {
	if err := ledger.ValidateDeduction(principalID, currency, amount); err != nil {
		return false, err
	}

	err := store.RunInTransaction(ctx, l.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE credit_balances
			SET balance = balance - $3, updated_at = $4
			WHERE principal_id = $1 AND currency = $2 AND balance >= $3`,
			principalID, string(currency), amount, time.Now().UTC())
		if err != nil {
			return MapError(err, nil)
		}
		if err := CheckRowsAffected(result, errInsufficient); err != nil {
			return err
		}
		return journal(ctx, tx, principalID, currency, -amount)
	})
	if errors.Is(err, errInsufficient) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to deduct %d %s credits: %w", amount, currency, err)
	}
	return true, nil
}

// Balance implements ledger.Ledger
func (l *PostgresLedger) Balance(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error) {
	var balance int
	err := l.db.QueryRowContext(ctx, `
		SELECT balance FROM credit_balances
		WHERE principal_id = $1 AND currency = $2`,
		principalID, string(currency)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s balance: %w", currency, err)
	}
	return balance, nil
}

// Grant implements ledger.Granter
func (l *PostgresLedger) Grant(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) error {
	if err := ledger.ValidateDeduction(principalID, currency, amount); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, l.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credit_balances (principal_id, currency, balance, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (principal_id, currency)
			DO UPDATE SET balance = credit_balances.balance + EXCLUDED.balance,
				updated_at = EXCLUDED.updated_at`,
			principalID, string(currency), amount, time.Now().UTC())
		if err != nil {
			return MapError(err, nil)
		}
		return journal(ctx, tx, principalID, currency, amount)
	})
	if err != nil {
		return fmt.Errorf("failed to grant %d %s credits: %w", amount, currency, err)
	}
	return nil
}

func journal(ctx context.Context, tx *sql.Tx, principalID uuid.UUID, currency domain.Currency, delta int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_entries (id, principal_id, currency, delta, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), principalID, string(currency), delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to journal credit change: %w", MapError(err, nil))
	}
	return nil
}

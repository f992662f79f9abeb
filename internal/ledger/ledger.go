package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
)

// Common errors returned by ledger implementations
var (
	ErrInvalidAmount    = errors.New("credit amount must be positive")
	ErrInvalidPrincipal = errors.New("principal ID cannot be empty")
)

// Ledger is the credit ledger contract.
type Ledger interface {
	// TryDeduct removes amount credits of currency from the principal's
	// balance iff the balance is at least amount. It returns false, with no
	// mutation, when the balance is insufficient.
	TryDeduct(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) (bool, error)

	// Balance returns the principal's current balance in currency.
	// Unknown principals have a zero balance.
	Balance(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error)
}

// Granter is implemented by ledgers that can add credits. It is used by
// seeding tools and tests; purchase flows are out of scope.
type Granter interface {
	Grant(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) error
}

// ValidateDeduction checks the arguments shared by every TryDeduct implementation.
func ValidateDeduction(principalID uuid.UUID, currency domain.Currency, amount int) error {
	if principalID == uuid.Nil {
		return ErrInvalidPrincipal
	}
	if !currency.Valid() {
		return domain.ErrInvalidCurrency
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

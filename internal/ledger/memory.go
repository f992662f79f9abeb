package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
)

type balanceKey struct {
	principal uuid.UUID
	currency  domain.Currency
}

// MemoryLedger is an in-process Ledger guarded by a mutex. It backs local
// development and tests; production uses the Postgres or Redis ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[balanceKey]int
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[balanceKey]int)}
}

// TryDeduct implements Ledger.
func (l *MemoryLedger) TryDeduct(
	ctx context.Context,
	principalID uuid.UUID,
	currency domain.Currency,
	amount int,
) (bool, error) {
	if err := ValidateDeduction(principalID, currency, amount); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{principalID, currency}
	if l.balances[key] < amount {
		return false, nil
	}
	l.balances[key] -= amount
	return true, nil
}

// Balance implements Ledger.
func (l *MemoryLedger) Balance(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error) {
	if !currency.Valid() {
		return 0, domain.ErrInvalidCurrency
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{principalID, currency}], nil
}

// Grant implements Granter.
func (l *MemoryLedger) Grant(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) error {
	if err := ValidateDeduction(principalID, currency, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{principalID, currency}] += amount
	return nil
}

var (
	_ Ledger  = (*MemoryLedger)(nil)
	_ Granter = (*MemoryLedger)(nil)
)

package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
)

// DeductCall records one TryDeduct invocation and its outcome.
type DeductCall struct {
	PrincipalID uuid.UUID
	Currency    domain.Currency
	Amount      int
	OK          bool
}

// MockLedger wraps a ledger.MemoryLedger, records deductions, and lets
// tests override either method.
type MockLedger struct {
	TryDeductFn func(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) (bool, error)
	BalanceFn   func(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error)

	*ledger.MemoryLedger

	mu      sync.Mutex
	deducts []DeductCall
}

var _ ledger.Ledger = (*MockLedger)(nil)

// NewMockLedger creates a MockLedger with an empty balance sheet.
func NewMockLedger() *MockLedger {
	return &MockLedger{MemoryLedger: ledger.NewMemoryLedger()}
}

// TryDeduct implements ledger.Ledger
func (m *MockLedger) TryDeduct(
	ctx context.Context,
	principalID uuid.UUID,
	currency domain.Currency,
	amount int,
) (bool, error) {
	var (
		ok  bool
		err error
	)
	if m.TryDeductFn != nil {
		ok, err = m.TryDeductFn(ctx, principalID, currency, amount)
	} else {
		ok, err = m.MemoryLedger.TryDeduct(ctx, principalID, currency, amount)
	}

	m.mu.Lock()
	m.deducts = append(m.deducts, DeductCall{principalID, currency, amount, ok && err == nil})
	m.mu.Unlock()
	return ok, err
}

// Balance implements ledger.Ledger
func (m *MockLedger) Balance(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error) {
	if m.BalanceFn != nil {
		return m.BalanceFn(ctx, principalID, currency)
	}
	return m.MemoryLedger.Balance(ctx, principalID, currency)
}

// DeductCalls returns every recorded TryDeduct call.
func (m *MockLedger) DeductCalls() []DeductCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeductCall(nil), m.deducts...)
}

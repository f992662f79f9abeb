package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_TryDeduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	principal := uuid.New()
	l := NewMemoryLedger()
	require.NoError(t, l.Grant(ctx, principal, domain.CurrencyText, 5))

	ok, err := l.TryDeduct(ctx, principal, domain.CurrencyText, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TryDeduct(ctx, principal, domain.CurrencyText, 4)
	require.NoError(t, err)
	assert.False(t, ok, "insufficient balance must be reported as false")

	balance, err := l.Balance(ctx, principal, domain.CurrencyText)
	require.NoError(t, err)
	assert.Equal(t, 3, balance, "failed deduction must not mutate the balance")

	imageBalance, err := l.Balance(ctx, principal, domain.CurrencyImage)
	require.NoError(t, err)
	assert.Zero(t, imageBalance, "currencies are independent")
}

func TestMemoryLedger_InvalidArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLedger()

	_, err := l.TryDeduct(ctx, uuid.Nil, domain.CurrencyText, 1)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = l.TryDeduct(ctx, uuid.New(), "gold", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = l.TryDeduct(ctx, uuid.New(), domain.CurrencyImage, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMemoryLedger_ConcurrentDeductionsNeverOverspend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	principal := uuid.New()
	l := NewMemoryLedger()
	require.NoError(t, l.Grant(ctx, principal, domain.CurrencyImage, 10))

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryDeduct(ctx, principal, domain.CurrencyImage, 1)
			assert.NoError(t, err)
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	balance, err := l.Balance(ctx, principal, domain.CurrencyImage)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

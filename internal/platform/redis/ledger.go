package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/reelsmith-api/internal/domain"
	"github.com/phrazzld/reelsmith-api/internal/ledger"
)

// DefaultKeyPrefix namespaces ledger keys.
const DefaultKeyPrefix = "reelsmith:credits:"

// tryDeductScript decrements a currency field iff it covers the amount.
// KEYS[1] balance hash, ARGV[1] currency, ARGV[2] amount.
var tryDeductScript = goredis.NewScript(`
local bal = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local amt = tonumber(ARGV[2])
if bal < amt then return 0 end
redis.call('HINCRBY', KEYS[1], ARGV[1], -amt)
return 1
`)

// Ledger implements ledger.Ledger with one hash per principal holding a
// field per currency.
type Ledger struct {
	rdb    goredis.Cmdable
	prefix string
}

var (
	_ ledger.Ledger  = (*Ledger)(nil)
	_ ledger.Granter = (*Ledger)(nil)
)

// NewLedger creates a ledger over rdb. An empty prefix selects DefaultKeyPrefix.
func NewLedger(rdb goredis.Cmdable, prefix string) *Ledger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Ledger{rdb: rdb, prefix: prefix}
}

func (l *Ledger) key(principalID uuid.UUID) string {
	return l.prefix + principalID.String()
}

// TryDeduct implements ledger.Ledger
func (l *Ledger) TryDeduct(
	ctx context.Context,
	principalID uuid.UUID,
	currency domain.Currency,
	amount int,
) (bool, error) {
	if err := ledger.ValidateDeduction(principalID, currency, amount); err != nil {
		return false, err
	}

	res, err := tryDeductScript.Run(ctx, l.rdb, []string{l.key(principalID)}, string(currency), amount).Int()
	if err != nil {
		return false, fmt.Errorf("failed to deduct %d %s credits: %w", amount, currency, err)
	}
	return res == 1, nil
}

// Balance implements ledger.Ledger
func (l *Ledger) Balance(ctx context.Context, principalID uuid.UUID, currency domain.Currency) (int, error) {
	balance, err := l.rdb.HGet(ctx, l.key(principalID), string(currency)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s balance: %w", currency, err)
	}
	return balance, nil
}

// Grant implements ledger.Granter
func (l *Ledger) Grant(ctx context.Context, principalID uuid.UUID, currency domain.Currency, amount int) error {
	if err := ledger.ValidateDeduction(principalID, currency, amount); err != nil {
		return err
	}
	if err := l.rdb.HIncrBy(ctx, l.key(principalID), string(currency), int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to grant %d %s credits: %w", amount, currency, err)
	}
	return nil
}

package domain

import (
	"github.com/google/uuid"
)

// DefaultMinutesPerCredit is the script pricing used when a principal's plan
// does not carry its own rate.
const DefaultMinutesPerCredit = 30

// Currency names one of the independent credit balances a principal holds.
type Currency string

// Supported credit currencies
const (
	CurrencyText  Currency = "text"
	CurrencyImage Currency = "image"
)

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyText || c == CurrencyImage
}

// ParseCurrency converts a string into a Currency.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.Valid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

// Profile is the billing view of a principal: the plan it is subscribed to
// and the pricing derived from it. Balances live in the credit ledger.
type Profile struct {
	PrincipalID      uuid.UUID `json:"principal_id"`
	Plan             string    `json:"plan"`
	MinutesPerCredit int       `json:"minutes_per_credit"`
}

// EffectiveMinutesPerCredit returns the plan rate, falling back to
// DefaultMinutesPerCredit when the plan carries none.
func (p *Profile) EffectiveMinutesPerCredit() int {
	if p == nil || p.MinutesPerCredit <= 0 {
		return DefaultMinutesPerCredit
	}
	return p.MinutesPerCredit
}

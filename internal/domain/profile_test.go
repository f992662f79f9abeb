package domain

import "testing"

func TestProfileEffectiveMinutesPerCredit(t *testing.T) {
	t.Parallel()

	var missing *Profile
	if got := missing.EffectiveMinutesPerCredit(); got != DefaultMinutesPerCredit {
		t.Errorf("Expected default for nil profile, got %d", got)
	}

	p := &Profile{Plan: "creator", MinutesPerCredit: 15}
	if got := p.EffectiveMinutesPerCredit(); got != 15 {
		t.Errorf("Expected plan rate 15, got %d", got)
	}

	p.MinutesPerCredit = 0
	if got := p.EffectiveMinutesPerCredit(); got != DefaultMinutesPerCredit {
		t.Errorf("Expected default for empty plan rate, got %d", got)
	}
}

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"text", "image"} {
		c, err := ParseCurrency(s)
		if err != nil || string(c) != s {
			t.Errorf("Expected %q to parse, got %q, %v", s, c, err)
		}
	}

	if _, err := ParseCurrency("gold"); err != ErrInvalidCurrency {
		t.Errorf("Expected error %v, got %v", ErrInvalidCurrency, err)
	}
}

package roulette

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrInvalidBet indicates a bet whose kind, value or amount is malformed.
var ErrInvalidBet = errors.New("roulette: invalid bet")

// Kind is the category of wager, which determines the payout multiplier.
type Kind string

const (
	KindNumber Kind = "number"
	KindColor  Kind = "color"
	KindParity Kind = "parity"
	KindDozen  Kind = "dozen"
)

// Parity bet values.
const (
	Even = "even"
	Odd  = "odd"
)

// Dozen bet values.
const (
	FirstDozen  = "1st 12"
	SecondDozen = "2nd 12"
	ThirdDozen  = "3rd 12"
)

// Bet is a single wager accepted into a round. Immutable once accepted.
type Bet struct {
	UserID string
	Kind   Kind
	Value  string
	Amount decimal.Decimal
}

// Validate checks that the amount is positive and the value fits the
// kind. It does not consult balances or round state.
func (b Bet) Validate() error {
	if !b.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}

	switch b.Kind {
	case KindNumber:
		n, err := strconv.Atoi(b.Value)
		if err != nil || n < 0 || n > MaxNumber {
			return fmt.Errorf("%w: number must be 0-%d, got %q", ErrInvalidBet, MaxNumber, b.Value)
		}
	case KindColor:
		switch Color(b.Value) {
		case Red, Black, Green:
		default:
			return fmt.Errorf("%w: unknown color %q", ErrInvalidBet, b.Value)
		}
	case KindParity:
		if b.Value != Even && b.Value != Odd {
			return fmt.Errorf("%w: parity must be %q or %q", ErrInvalidBet, Even, Odd)
		}
	case KindDozen:
		switch b.Value {
		case FirstDozen, SecondDozen, ThirdDozen:
		default:
			return fmt.Errorf("%w: unknown dozen %q", ErrInvalidBet, b.Value)
		}
	default:
		return fmt.Errorf("%w: unknown bet kind %q", ErrInvalidBet, b.Kind)
	}

	return nil
}

// Describe renders a short human description of the bet, used in the
// confirmation sent back to the bettor.
func (b Bet) Describe() string {
	switch b.Kind {
	case KindNumber:
		return fmt.Sprintf("%s on number %s", b.Amount, b.Value)
	case KindDozen:
		return fmt.Sprintf("%s on dozen %s", b.Amount, b.Value)
	default:
		return fmt.Sprintf("%s on %s", b.Amount, b.Value)
	}
}

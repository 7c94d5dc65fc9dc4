package roulette

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	mult2  = decimal.NewFromInt(2)
	mult3  = decimal.NewFromInt(3)
	mult36 = decimal.NewFromInt(36)
)

// Payout returns the total amount returned for a settled bet, zero when
// the bet loses. Straight number bets pay 36x, color bets 2x (36x for
// green), parity 2x and dozens 3x. Zero never wins a parity or dozen
// bet. Pure and deterministic.
func Payout(kind Kind, value string, amount decimal.Decimal, winning int) decimal.Decimal {
	switch kind {
	case KindNumber:
		if n, err := strconv.Atoi(value); err == nil && n == winning {
			return amount.Mul(mult36)
		}

	case KindColor:
		color := ColorOf(winning)
		if Color(value) == color {
			if color == Green {
				return amount.Mul(mult36)
			}
			return amount.Mul(mult2)
		}

	case KindParity:
		if winning == 0 {
			return decimal.Zero
		}
		even := winning%2 == 0
		if (value == Even && even) || (value == Odd && !even) {
			return amount.Mul(mult2)
		}

	case KindDozen:
		switch {
		case value == FirstDozen && winning >= 1 && winning <= 12,
			value == SecondDozen && winning >= 13 && winning <= 24,
			value == ThirdDozen && winning >= 25 && winning <= 36:
			return amount.Mul(mult3)
		}
	}

	return decimal.Zero
}

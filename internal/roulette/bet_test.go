package roulette

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetValidate(t *testing.T) {
	t.Parallel()

	ten := decimal.NewFromInt(10)

	valid := []Bet{
		{Kind: KindNumber, Value: "0", Amount: ten},
		{Kind: KindNumber, Value: "36", Amount: ten},
		{Kind: KindColor, Value: "green", Amount: decimal.RequireFromString("0.01")},
		{Kind: KindParity, Value: "odd", Amount: ten},
		{Kind: KindDozen, Value: "2nd 12", Amount: ten},
	}
	for _, b := range valid {
		assert.NoError(t, b.Validate(), "bet %+v", b)
	}

	invalid := []Bet{
		{Kind: KindNumber, Value: "37", Amount: ten},
		{Kind: KindNumber, Value: "-1", Amount: ten},
		{Kind: KindNumber, Value: "seven", Amount: ten},
		{Kind: KindColor, Value: "blue", Amount: ten},
		{Kind: KindParity, Value: "both", Amount: ten},
		{Kind: KindDozen, Value: "4th 12", Amount: ten},
		{Kind: Kind("street"), Value: "1", Amount: ten},
		{Kind: KindColor, Value: "red", Amount: decimal.Zero},
		{Kind: KindColor, Value: "red", Amount: decimal.NewFromInt(-5)},
	}
	for _, b := range invalid {
		err := b.Validate()
		require.Error(t, err, "bet %+v", b)
		assert.ErrorIs(t, err, ErrInvalidBet)
	}
}

func TestBetDescribe(t *testing.T) {
	t.Parallel()

	b := Bet{Kind: KindNumber, Value: "7", Amount: decimal.NewFromInt(10)}
	assert.Equal(t, "10 on number 7", b.Describe())

	b = Bet{Kind: KindColor, Value: "red", Amount: decimal.NewFromInt(5)}
	assert.Equal(t, "5 on red", b.Describe())
}

// Package roulette implements the rules of the wheel: pocket colors,
// bet kinds and their payout schedule, outcome drawing, and the rolling
// window of recent outcomes. Everything here is pure game logic with no
// knowledge of connections, rounds or balances.
package roulette

import rand "math/rand/v2"

// MaxNumber is the highest pocket on the wheel.
const MaxNumber = 36

// Color of a wheel pocket.
type Color string

const (
	Red   Color = "red"
	Black Color = "black"
	Green Color = "green"
)

// String returns the string representation of the color.
func (c Color) String() string {
	return string(c)
}

// redNumbers is the canonical 18-pocket red set shared by European and
// American wheels.
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// ColorOf maps a winning number to its pocket color. Zero is the single
// green pocket; every other pocket is red or black.
func ColorOf(n int) Color {
	switch {
	case n == 0:
		return Green
	case redNumbers[n]:
		return Red
	default:
		return Black
	}
}

// Outcome is one completed spin of the wheel.
type Outcome struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
}

// Spin draws a uniform winning number in [0, MaxNumber].
func Spin(rng *rand.Rand) Outcome {
	n := rng.IntN(MaxNumber + 1)
	return Outcome{Number: n, Color: ColorOf(n)}
}

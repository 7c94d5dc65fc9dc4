// Package round drives the repeating betting/rolling/settlement cycle:
// the round clock, the set of accepted bets, payout settlement against
// the ledger, and the events broadcast to connected sessions. The clock
// is the sole source of truth for the phase; no client input can alter
// it.
package round

// Phase is the round's current stage.
type Phase string

const (
	Betting  Phase = "betting"
	Rolling  Phase = "rolling"
	Settling Phase = "settling"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

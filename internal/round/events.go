package round

import (
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
)

// EventType identifies a round event.
type EventType string

const (
	EventTypeTimer  EventType = "timer"
	EventTypeStatus EventType = "status"
	EventTypeResult EventType = "result"
)

// Event is anything the round machine publishes to its sink.
type Event interface {
	EventType() EventType
}

// Sink receives round events for fan-out to clients. Publish must not
// block; delivery is best-effort and a slow or dead consumer must never
// stall the round clock.
type Sink interface {
	Publish(Event)
}

// TimerEvent is published once per countdown tick during Betting.
type TimerEvent struct {
	Seconds int
	Phase   Phase
}

func (e TimerEvent) EventType() EventType { return EventTypeTimer }

// StatusEvent is published on a phase change outside the countdown.
type StatusEvent struct {
	Phase Phase
}

func (e StatusEvent) EventType() EventType { return EventTypeStatus }

// ResultEvent is published when a round settles. Winners maps user ID
// to total winnings; users who won nothing are omitted.
type ResultEvent struct {
	Number  int
	Color   roulette.Color
	History []roulette.Outcome
	Winners map[string]decimal.Decimal
}

func (e ResultEvent) EventType() EventType { return EventTypeResult }

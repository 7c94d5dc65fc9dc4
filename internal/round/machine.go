package round

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/ledger"
	"github.com/spinhall/roulette/internal/roulette"
)

// ErrNotBetting indicates a bet submitted outside the Betting phase.
var ErrNotBetting = errors.New("round: not accepting bets")

// Config holds the round timing parameters.
type Config struct {
	// BettingSeconds is the countdown start; one TimerEvent is
	// published per tick from BettingSeconds down to zero.
	BettingSeconds int

	// TickInterval is the countdown cadence. One second in production;
	// tests shrink it.
	TickInterval time.Duration

	// RollingPause is the no-bets pause before the draw.
	RollingPause time.Duration

	// ResultPause is how long the result stays on screen before the
	// next round opens.
	ResultPause time.Duration
}

// DefaultConfig mirrors the live table timings.
func DefaultConfig() Config {
	return Config{
		BettingSeconds: 20,
		TickInterval:   time.Second,
		RollingPause:   2 * time.Second,
		ResultPause:    6 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BettingSeconds <= 0 {
		c.BettingSeconds = d.BettingSeconds
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.RollingPause <= 0 {
		c.RollingPause = d.RollingPause
	}
	if c.ResultPause <= 0 {
		c.ResultPause = d.ResultPause
	}
	return c
}

// Machine is the round state machine. Exactly one Machine is live per
// server; all round state mutates under one mutex, and Run is the only
// writer of the phase.
type Machine struct {
	mu          sync.Mutex
	phase       Phase
	secondsLeft int
	bets        []roulette.Bet
	rng         *rand.Rand

	cfg     Config
	ledger  *ledger.Ledger
	history *roulette.History
	clock   quartz.Clock
	sink    Sink
	logger  *log.Logger
}

// NewMachine creates a round machine. The machine opens in the Betting
// phase so early connections can bet before the first tick.
func NewMachine(cfg Config, lgr *ledger.Ledger, history *roulette.History, rng *rand.Rand, clock quartz.Clock, sink Sink, logger *log.Logger) *Machine {
	cfg = cfg.withDefaults()
	return &Machine{
		phase:       Betting,
		secondsLeft: cfg.BettingSeconds,
		rng:         rng,
		cfg:         cfg,
		ledger:      lgr,
		history:     history,
		clock:       clock,
		sink:        sink,
		logger:      logger.WithPrefix("round"),
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// SecondsLeft returns the current betting countdown value.
func (m *Machine) SecondsLeft() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secondsLeft
}

// BetCount returns the number of bets accepted into the current round.
func (m *Machine) BetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bets)
}

// History returns a newest-first snapshot of recent outcomes.
func (m *Machine) History() []roulette.Outcome {
	return m.history.All()
}

// PlaceBet validates and accepts a bet into the current round,
// returning the bettor's new balance. Checks run in order: phase, bet
// shape and amount, then the ledger debit (which rejects unknown users
// and insufficient funds). The debit and the append to the round's bet
// set happen under the machine lock, so acceptance is indivisible with
// respect to the transition into Settling.
func (m *Machine) PlaceBet(ctx context.Context, bet roulette.Bet) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Betting {
		return decimal.Zero, ErrNotBetting
	}
	if err := bet.Validate(); err != nil {
		return decimal.Zero, err
	}

	balance, err := m.ledger.Debit(ctx, bet.UserID, bet.Amount)
	if err != nil {
		return decimal.Zero, err
	}

	m.bets = append(m.bets, bet)
	m.logger.Debug("bet accepted", "user", bet.UserID, "kind", bet.Kind, "value", bet.Value, "amount", bet.Amount)
	return balance, nil
}

// Run drives the infinite betting/rolling/settlement cycle until ctx is
// cancelled. Broadcast and persistence failures are logged and never
// stall the clock.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("round loop started",
		"betting_seconds", m.cfg.BettingSeconds,
		"rolling_pause", m.cfg.RollingPause,
		"result_pause", m.cfg.ResultPause)

	for {
		if err := m.runRound(ctx); err != nil {
			m.logger.Info("round loop stopped", "reason", err)
			return err
		}
	}
}

func (m *Machine) runRound(ctx context.Context) error {
	m.beginBetting()
	for i := m.cfg.BettingSeconds; i >= 0; i-- {
		m.setCountdown(i)
		m.publish(TimerEvent{Seconds: i, Phase: Betting})
		if err := m.sleep(ctx, m.cfg.TickInterval); err != nil {
			return err
		}
	}

	m.beginRolling()
	m.publish(StatusEvent{Phase: Rolling})
	if err := m.sleep(ctx, m.cfg.RollingPause); err != nil {
		return err
	}

	m.settle(ctx)
	return m.sleep(ctx, m.cfg.ResultPause)
}

// beginBetting opens a fresh round. The accepted-bet set is reset; bets
// never carry over between rounds.
func (m *Machine) beginBetting() {
	m.mu.Lock()
	m.phase = Betting
	m.bets = nil
	m.secondsLeft = m.cfg.BettingSeconds
	m.mu.Unlock()

	m.logger.Debug("betting open")
}

func (m *Machine) setCountdown(seconds int) {
	m.mu.Lock()
	m.secondsLeft = seconds
	m.mu.Unlock()
}

// beginRolling closes bet acceptance for the round.
func (m *Machine) beginRolling() {
	m.mu.Lock()
	m.phase = Rolling
	m.mu.Unlock()

	m.logger.Debug("betting closed, rolling")
}

// settle draws the outcome and settles the round.
func (m *Machine) settle(ctx context.Context) {
	m.mu.Lock()
	winning := m.rng.IntN(roulette.MaxNumber + 1)
	m.mu.Unlock()

	m.settleNumber(ctx, winning)
}

// settleNumber settles the round against a known winning number. Split
// out from settle so tests can drive deterministic outcomes.
func (m *Machine) settleNumber(ctx context.Context, winning int) {
	m.mu.Lock()
	m.phase = Settling
	bets := m.bets
	m.bets = nil
	m.mu.Unlock()

	outcome := roulette.Outcome{Number: winning, Color: roulette.ColorOf(winning)}

	winners := make(map[string]decimal.Decimal)
	for _, bet := range bets {
		payout := roulette.Payout(bet.Kind, bet.Value, bet.Amount, winning)
		if payout.IsPositive() {
			winners[bet.UserID] = winners[bet.UserID].Add(payout)
		}
	}

	// One batched credit per winning user, before the next round can
	// open. A failed credit is a serious persistence problem but must
	// not stop the clock.
	for userID, amount := range winners {
		if _, err := m.ledger.Credit(ctx, userID, amount); err != nil {
			m.logger.Error("failed to credit winnings", "user", userID, "amount", amount, "error", err)
		}
	}

	if err := m.ledger.Store().AppendSpinRecord(ctx, ledger.SpinRecord{
		Number:    winning,
		Color:     outcome.Color,
		Timestamp: m.clock.Now(),
	}); err != nil {
		m.logger.Error("failed to persist spin record", "error", err)
	}

	m.history.Push(outcome)

	m.logger.Info("round settled",
		"number", winning,
		"color", outcome.Color,
		"bets", len(bets),
		"winners", len(winners))

	m.publish(ResultEvent{
		Number:  winning,
		Color:   outcome.Color,
		History: m.history.All(),
		Winners: winners,
	})
}

func (m *Machine) publish(ev Event) {
	if m.sink != nil {
		m.sink.Publish(ev)
	}
}

func (m *Machine) sleep(ctx context.Context, d time.Duration) error {
	timer := m.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

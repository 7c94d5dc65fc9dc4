package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

// Operation is an admin fund operation.
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
	OpSet    Operation = "set"
)

// lockStripes bounds the number of distinct user locks. Contention per
// user is low, so hashing users onto a fixed stripe set is enough.
const lockStripes = 64

// Ledger serializes all balance mutations for a user. Debit, Credit and
// Adjust each perform their read-modify-write entirely under the user's
// lock, so concurrent bets and settlement credits can never interleave
// on the same balance.
type Ledger struct {
	store  Store
	locks  [lockStripes]sync.Mutex
	logger *log.Logger
}

// New returns a Ledger over the given store.
func New(store Store, logger *log.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.WithPrefix("ledger"),
	}
}

// Store exposes the underlying store for read-only collaborators.
func (l *Ledger) Store() Store {
	return l.store
}

func (l *Ledger) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &l.locks[h.Sum32()%lockStripes]
}

// Debit withdraws amount from the user's balance and returns the new
// balance. A debit that would drive the balance below zero is rejected
// with ErrInsufficientFunds and changes nothing.
func (l *Ledger) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: debit amount must be positive", ErrInvalidOperation)
	}

	mu := l.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	u, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if u.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, u.Balance, amount)
	}

	next := u.Balance.Sub(amount)
	if err := l.store.UpdateBalance(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("persist debit for %s: %w", userID, err)
	}
	return next, nil
}

// Credit deposits amount into the user's balance and returns the new
// balance.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: credit amount must be positive", ErrInvalidOperation)
	}

	mu := l.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	u, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	next := u.Balance.Add(amount)
	if err := l.store.UpdateBalance(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("persist credit for %s: %w", userID, err)
	}
	return next, nil
}

// Adjust applies an admin fund operation and returns the new balance.
// Unlike a bet debit, a remove that exceeds the balance clamps to zero
// instead of rejecting.
func (l *Ledger) Adjust(ctx context.Context, userID string, amount decimal.Decimal, op Operation) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", ErrInvalidOperation)
	}

	mu := l.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	u, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	var next decimal.Decimal
	switch op {
	case OpAdd:
		next = u.Balance.Add(amount)
	case OpRemove:
		next = u.Balance.Sub(amount)
		if next.IsNegative() {
			next = decimal.Zero
		}
	case OpSet:
		next = amount
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown operation %q", ErrInvalidOperation, op)
	}

	if err := l.store.UpdateBalance(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("persist %s for %s: %w", op, userID, err)
	}

	l.logger.Info("fund operation applied", "user", userID, "op", op, "amount", amount, "balance", next)
	return next, nil
}

// Package ledger owns user balances and the discipline around mutating
// them: every debit and credit for a user is serialized through a
// per-user lock, and a debit that would drive the balance negative is
// rejected outright. Durable storage sits behind the Store interface,
// with Redis and in-memory implementations.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
)

var (
	// ErrUnknownUser indicates the user ID or username does not exist.
	ErrUnknownUser = errors.New("ledger: unknown user")

	// ErrUserExists indicates a registration conflict on username.
	ErrUserExists = errors.New("ledger: user already exists")

	// ErrInsufficientFunds indicates a debit that would drive the
	// balance below zero.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidOperation indicates a malformed fund operation.
	ErrInvalidOperation = errors.New("ledger: invalid fund operation")
)

// User is an account holding a balance. PasswordHash is a bcrypt hash,
// persisted but never exposed through the API layer.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"password_hash"`
	Balance      decimal.Decimal `json:"balance"`
	IsAdmin      bool            `json:"is_admin"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SpinRecord is the append-only log entry written once per settled round.
type SpinRecord struct {
	Number    int            `json:"number"`
	Color     roulette.Color `json:"color"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store is the durable key-value collaborator behind the ledger.
// Implementations must make UpdateBalance an atomic write; everything
// above that (read-modify-write) is serialized by the Ledger.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error

	AppendSpinRecord(ctx context.Context, rec SpinRecord) error
	RecentSpinRecords(ctx context.Context, limit int) ([]SpinRecord, error)
	CountSpinRecords(ctx context.Context) (int64, error)
	AggregateByColor(ctx context.Context) (map[roulette.Color]int64, error)
}

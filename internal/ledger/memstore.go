package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
)

// MemStore is an in-memory Store used by tests and the --mem dev mode.
type MemStore struct {
	mu        sync.RWMutex
	users     map[string]User
	usernames map[string]string
	spins     []SpinRecord
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]User),
		usernames: make(map[string]string),
	}
}

func (s *MemStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[u.Username]; ok {
		return ErrUserExists
	}
	s.users[u.ID] = *u
	s.usernames[u.Username] = u.ID
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	return &u, nil
}

func (s *MemStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		out = append(out, &u)
	}
	return out, nil
}

func (s *MemStore) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUnknownUser
	}
	u.Balance = balance
	s.users[id] = u
	return nil
}

func (s *MemStore) AppendSpinRecord(ctx context.Context, rec SpinRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spins = append(s.spins, rec)
	return nil
}

func (s *MemStore) RecentSpinRecords(ctx context.Context, limit int) ([]SpinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.spins) {
		limit = len(s.spins)
	}

	// Newest first
	out := make([]SpinRecord, 0, limit)
	for i := len(s.spins) - 1; i >= len(s.spins)-limit; i-- {
		out = append(out, s.spins[i])
	}
	return out, nil
}

func (s *MemStore) CountSpinRecords(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.spins)), nil
}

func (s *MemStore) AggregateByColor(ctx context.Context) (map[roulette.Color]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[roulette.Color]int64)
	for _, rec := range s.spins {
		agg[rec.Color]++
	}
	return agg, nil
}

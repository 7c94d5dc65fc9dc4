package ledger

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestLedger(t *testing.T, balance int64) (*Ledger, *MemStore, string) {
	t.Helper()

	store := NewMemStore()
	u := &User{ID: "u1", Username: "alice", Balance: decimal.NewFromInt(balance)}
	require.NoError(t, store.CreateUser(context.Background(), u))

	return New(store, testLogger()), store, u.ID
}

func TestDebitAndCredit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, _, id := newTestLedger(t, 100)

	bal, err := l.Debit(ctx, id, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(90)), "balance = %s", bal)

	bal, err = l.Credit(ctx, id, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(110)), "balance = %s", bal)
}

func TestDebitInsufficientFundsLeavesBalanceUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, store, id := newTestLedger(t, 5)

	_, err := l.Debit(ctx, id, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	u, err := store.GetUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(5)), "balance = %s", u.Balance)
}

func TestDebitUnknownUser(t *testing.T) {
	t.Parallel()

	l, _, _ := newTestLedger(t, 100)

	_, err := l.Debit(context.Background(), "nobody", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	t.Parallel()

	l, _, id := newTestLedger(t, 100)

	_, err := l.Debit(context.Background(), id, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = l.Debit(context.Background(), id, decimal.NewFromInt(-3))
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

// Concurrent debits against one balance must never be lost or applied
// twice: the final balance is exactly the initial balance minus the sum
// of the accepted debits.
func TestConcurrentDebitsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const (
		workers = 50
		initial = 30
	)

	l, store, id := newTestLedger(t, initial)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Debit(ctx, id, decimal.NewFromInt(1)); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, initial, accepted, "exactly the covered debits should be accepted")

	u, err := store.GetUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.Balance.IsZero(), "final balance = %s, want 0", u.Balance)
}

func TestAdjust(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		initial int64
		amount  int64
		op      Operation
		want    int64
	}{
		{"add", 100, 50, OpAdd, 150},
		{"remove", 100, 40, OpRemove, 60},
		{"remove clamps to zero", 100, 500, OpRemove, 0},
		{"set", 100, 77, OpSet, 77},
		{"set to zero", 100, 0, OpSet, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, _, id := newTestLedger(t, tt.initial)
			bal, err := l.Adjust(ctx, id, decimal.NewFromInt(tt.amount), tt.op)
			require.NoError(t, err)
			assert.True(t, bal.Equal(decimal.NewFromInt(tt.want)), "balance = %s, want %d", bal, tt.want)
		})
	}
}

func TestAdjustRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	l, _, id := newTestLedger(t, 100)

	_, err := l.Adjust(context.Background(), id, decimal.NewFromInt(1), Operation("steal"))
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestAdjustUnknownUser(t *testing.T) {
	t.Parallel()

	l, _, _ := newTestLedger(t, 100)

	_, err := l.Adjust(context.Background(), "nobody", decimal.NewFromInt(1), OpAdd)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

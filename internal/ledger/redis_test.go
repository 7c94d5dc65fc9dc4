package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhall/roulette/internal/roulette"
)

// newRedisTestStore connects to the Redis instance named by
// REDIS_TEST_ADDR, using DB 15 and flushing it afterwards. Skipped when
// the variable is unset so the suite stays hermetic by default.
func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set; skipping redis integration test")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, "", 15)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.client.FlushDB(ctx).Err()
		_ = store.Close()
	})
	return store
}

func TestRedisStoreUserLifecycle(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	u := &User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Balance:   decimal.NewFromInt(1000),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.ErrorIs(t, store.CreateUser(ctx, &User{ID: uuid.NewString(), Username: "alice"}), ErrUserExists)

	got, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.Balance.Equal(u.Balance))

	require.NoError(t, store.UpdateBalance(ctx, u.ID, decimal.NewFromInt(250)))
	got, err = store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(250)))

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestRedisStoreSpinRecords(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	for _, n := range []int{0, 1, 2} {
		require.NoError(t, store.AppendSpinRecord(ctx, SpinRecord{
			Number:    n,
			Color:     roulette.ColorOf(n),
			Timestamp: time.Now().UTC(),
		}))
	}

	count, err := store.CountSpinRecords(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	recent, err := store.RecentSpinRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].Number, "newest record first")

	agg, err := store.AggregateByColor(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg[roulette.Green])
	assert.EqualValues(t, 1, agg[roulette.Red])
	assert.EqualValues(t, 1, agg[roulette.Black])
}

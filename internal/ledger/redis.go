package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
)

// Redis key layout.
const (
	keyUser      = "user:%s"     // JSON user record
	keyUsername  = "username:%s" // username -> user ID
	keyUserIDs   = "users"       // set of all user IDs
	keySpins     = "spins"       // list of JSON spin records, newest first
	keySpinColor = "spins:color:%s"
)

// RedisStore is the durable Store backed by Redis. User records are JSON
// blobs with a username index, spin records an LPUSH list plus per-color
// counters so AggregateByColor never scans the list.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CreateUser(ctx context.Context, u *User) error {
	// Claim the username first; SETNX makes the claim atomic.
	ok, err := s.client.SetNX(ctx, fmt.Sprintf(keyUsername, u.Username), u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim username: %w", err)
	}
	if !ok {
		return ErrUserExists
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keyUser, u.ID), data, 0)
	pipe.SAdd(ctx, keyUserIDs, u.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (s *RedisStore) GetUser(ctx context.Context, id string) (*User, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(keyUser, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *RedisStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	id, err := s.client.Get(ctx, fmt.Sprintf(keyUsername, username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("resolve username: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *RedisStore) ListUsers(ctx context.Context) ([]*User, error) {
	ids, err := s.client.SMembers(ctx, keyUserIDs).Result()
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(keyUser, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	users := make([]*User, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch user: %w", err)
		}
		var u User
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		users = append(users, &u)
	}
	return users, nil
}

func (s *RedisStore) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.Balance = balance

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(keyUser, id), data, 0).Err(); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendSpinRecord(ctx context.Context, rec SpinRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal spin record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, keySpins, data)
	pipe.Incr(ctx, fmt.Sprintf(keySpinColor, rec.Color))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append spin record: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentSpinRecords(ctx context.Context, limit int) ([]SpinRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := s.client.LRange(ctx, keySpins, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read spin records: %w", err)
	}

	recs := make([]SpinRecord, 0, len(raw))
	for _, item := range raw {
		var rec SpinRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal spin record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *RedisStore) CountSpinRecords(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, keySpins).Result()
	if err != nil {
		return 0, fmt.Errorf("count spin records: %w", err)
	}
	return n, nil
}

func (s *RedisStore) AggregateByColor(ctx context.Context) (map[roulette.Color]int64, error) {
	colors := []roulette.Color{roulette.Red, roulette.Black, roulette.Green}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(colors))
	for i, c := range colors {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(keySpinColor, c))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("aggregate by color: %w", err)
	}

	agg := make(map[roulette.Color]int64)
	for i, cmd := range cmds {
		n, err := cmd.Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("aggregate by color: %w", err)
		}
		agg[colors[i]] = n
	}
	return agg, nil
}

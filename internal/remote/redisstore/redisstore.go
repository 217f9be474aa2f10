// Package redisstore keeps the remote ledger document under a single Redis
// key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventledger/internal/core"
	"eventledger/internal/remote"
)

// Commands is the subset of the Redis client the store needs.
// *redis.Client satisfies it.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store implements remote.LedgerStore on top of Redis.
type Store struct {
	client Commands
	key    string
	now    func() time.Time
}

// New connects to Redis at addr. The connection is established lazily by
// the client on first use.
func New(addr, password string, db int, key string) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(rdb, key)
}

func NewWithClient(client Commands, key string) *Store {
	if key == "" {
		key = remote.DefaultKey
	}
	return &Store{
		client: client,
		key:    key,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Get(ctx context.Context) (remote.Document, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return remote.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Document{}, fmt.Errorf("redis get failed for %s: %w", s.key, err)
	}
	return remote.Unmarshal(b)
}

func (s *Store) Put(ctx context.Context, l core.Ledger) (time.Time, error) {
	ts := s.now()
	body, err := remote.Marshal(remote.Document{Ledger: l, LastModified: ts})
	if err != nil {
		return time.Time{}, err
	}
	if err := s.client.Set(ctx, s.key, body, 0).Err(); err != nil {
		return time.Time{}, fmt.Errorf("redis set failed for %s: %w", s.key, err)
	}
	return ts, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del failed for %s: %w", s.key, err)
	}
	return nil
}

// Close releases the underlying connection pool when the client owns one.
func (s *Store) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

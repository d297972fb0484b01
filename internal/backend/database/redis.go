package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKey     = "gallery:index"
	defaultRedisTimeout = 5 * time.Second
)

// RedisStore keeps the pretty-printed JSON document under a single Redis key.
type RedisStore struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisStore connects to the Redis instance described by url (redis://host:port/db).
func NewRedisStore(url, key string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis metadata store requires a connection string")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	store := NewRedisStoreWithClient(redis.NewClient(opts), key)

	ctx, cancel := context.WithTimeout(context.Background(), store.timeout)
	defer cancel()
	if err := store.client.Ping(ctx).Err(); err != nil {
		_ = store.client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return store, nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client:  client,
		key:     key,
		timeout: defaultRedisTimeout,
	}
}

func (s *RedisStore) Load() Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		empty, encErr := encodeIndex(nil)
		if encErr != nil {
			return unreadableSnapshot(encErr)
		}
		// SETNX so a concurrent writer that got there first is not clobbered
		if err := s.client.SetNX(ctx, s.key, empty, 0).Err(); err != nil {
			return unreadableSnapshot(fmt.Errorf("failed to initialize key %s: %w", s.key, err))
		}
		return initializedSnapshot()
	}
	if err != nil {
		return unreadableSnapshot(fmt.Errorf("failed to read key %s: %w", s.key, err))
	}

	records, err := decodeIndex(data)
	if err != nil {
		return unreadableSnapshot(fmt.Errorf("key %s: %w", s.key, err))
	}
	return okSnapshot(records)
}

func (s *RedisStore) Save(records []ImageRecord) error {
	data, err := encodeIndex(records)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write key %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore is a Store kept in Redis: entries in one hash keyed by query,
// first-insertion order in a sorted set.
type RedisStore struct {
	client *backend.Client
	prefix string

	mu     sync.RWMutex
	closed bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. The default is "stategraph:memory:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient uses an existing client. Close closes it.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "stategraph:memory:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) entriesKey() string { return s.prefix + "entries" }
func (s *RedisStore) orderKey() string   { return s.prefix + "order" }

type redisEntry struct {
	Result    string `json:"result"`
	Source    Source `json:"source"`
	UpdatedAt int64  `json:"updated_at"`
}

// Lookup implements Reader.
func (s *RedisStore) Lookup(ctx context.Context, query string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}

	raw, err := s.client.HGet(ctx, s.entriesKey(), query).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get from redis: %w", err)
	}
	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return e.Result, true, nil
}

// Approve implements Store.
func (s *RedisStore) Approve(ctx context.Context, query, result string) error {
	return s.put(ctx, query, result, SourceApproved)
}

// Edit implements Store.
func (s *RedisStore) Edit(ctx context.Context, query, result string) error {
	return s.put(ctx, query, result, SourceEdited)
}

// put writes the entry and its order slot in one MULTI/EXEC transaction.
// ZADD NX keeps the original position on overwrite.
func (s *RedisStore) put(ctx context.Context, query, result string, source Source) error {
	if err := validate(query); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	now := time.Now()
	data, err := json.Marshal(redisEntry{Result: result, Source: source, UpdatedAt: now.UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, s.entriesKey(), query, data)
		pipe.ZAddNX(ctx, s.orderKey(), backend.Z{Score: float64(now.UnixNano()), Member: query})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Entries implements Store.
func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	queries, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read order index: %w", err)
	}
	if len(queries) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.entriesKey(), queries...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	out := make([]Entry, 0, len(queries))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e redisEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %q: %w", queries[i], err)
		}
		out = append(out, Entry{
			Query:     queries[i],
			Result:    e.Result,
			Source:    e.Source,
			UpdatedAt: time.UnixMilli(e.UpdatedAt),
		})
	}
	return out, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

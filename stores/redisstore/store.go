// Package redisstore persists linked accounts in one Redis hash: field is the
// external account id, value the JSON encoded goLink.LinkedAccount.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	goLink "github.com/MrEthical07/goLink"
	"github.com/redis/go-redis/v9"
)

const defaultKey = "golink:links"

var ErrRedisUnavailable = errors.New("redisstore: redis unavailable")

// Store buffers Set calls in memory and writes them in one pipeline on Save.
// Exists and Get read Redis only, so an unsaved record is not linked.
type Store struct {
	redis redis.UniversalClient
	key   string

	mu       sync.Mutex
	buffered map[string]goLink.LinkedAccount
}

// New returns a Store on client. An empty key selects "golink:links".
func New(client redis.UniversalClient, key string) *Store {
	if key == "" {
		key = defaultKey
	}
	return &Store{
		redis:    client,
		key:      key,
		buffered: map[string]goLink.LinkedAccount{},
	}
}

func (s *Store) Exists(ctx context.Context, externalAccountID string) (bool, error) {
	exists, err := s.redis.HExists(ctx, s.key, externalAccountID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return exists, nil
}

// Get reads one saved record.
func (s *Store) Get(ctx context.Context, externalAccountID string) (goLink.LinkedAccount, bool, error) {
	raw, err := s.redis.HGet(ctx, s.key, externalAccountID).Bytes()
	if errors.Is(err, redis.Nil) {
		return goLink.LinkedAccount{}, false, nil
	}
	if err != nil {
		return goLink.LinkedAccount{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var record goLink.LinkedAccount
	if err := json.Unmarshal(raw, &record); err != nil {
		return goLink.LinkedAccount{}, false, fmt.Errorf("redisstore: decode %s: %w", externalAccountID, err)
	}
	return record, true, nil
}

func (s *Store) Set(ctx context.Context, externalAccountID string, record goLink.LinkedAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if externalAccountID == "" {
		return errors.New("redisstore: external account id is required")
	}
	record.ExternalAccountID = externalAccountID

	s.mu.Lock()
	s.buffered[externalAccountID] = record
	s.mu.Unlock()
	return nil
}

// Save flushes buffered records with one HSET in a single transaction
// pipeline. The buffer is cleared either way; callers Set again to retry.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer clear(s.buffered)

	if len(s.buffered) == 0 {
		return nil
	}

	values := make([]any, 0, 2*len(s.buffered))
	for id, record := range s.buffered {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("redisstore: encode %s: %w", id, err)
		}
		values = append(values, id, raw)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Len returns the number of saved records.
func (s *Store) Len(ctx context.Context) (int64, error) {
	n, err := s.redis.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"beacon/internal/rip"
	pkgerrors "beacon/pkg/errors"
)

const historyKeyPrefix = "rip:history:"

// RedisStore keeps the response history in Redis. This is the recommended
// backend for multi-instance deployments: SetNX gives the write-once
// semantics directly, and an optional TTL bounds retention.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // zero means no expiry
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTL sets an expiry on history entries. Expired entries mean a repeated
// query re-charges the budget, so the TTL should match the budget reset
// policy.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedis constructs a Redis-backed response history.
func NewRedis(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	store := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func historyKey(userID, fingerprint, datasetID string) string {
	return fmt.Sprintf("%s%s:%s:%s", historyKeyPrefix, userID, datasetID, fingerprint)
}

// Lookup returns the memoized response for the key, if any.
func (s *RedisStore) Lookup(ctx context.Context, userID, fingerprint, datasetID string) ([]rip.CandidateRecord, bool, error) {
	payload, err := s.client.Get(ctx, historyKey(userID, fingerprint, datasetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "lookup history")
	}

	var records []rip.CandidateRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "decode history entry")
	}
	return records, true, nil
}

// Store writes the response with SetNX: the first writer wins and a
// duplicate store is an idempotent no-op.
func (s *RedisStore) Store(ctx context.Context, userID, fingerprint, datasetID string, records []rip.CandidateRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "encode history entry")
	}

	if err := s.client.SetNX(ctx, historyKey(userID, fingerprint, datasetID), payload, s.ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "store history")
	}
	return nil
}

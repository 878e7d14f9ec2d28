package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/synapsed-labs/swarmkit/trust"
)

// redisTrustConfig holds RedisTrustStore configuration, following the
// teacher's functional-options-over-config-struct convention.
type redisTrustConfig struct {
	keyPrefix string
	ttl       time.Duration
}

// RedisTrustStoreOption configures a RedisTrustStore.
type RedisTrustStoreOption func(*redisTrustConfig)

// WithTrustKeyPrefix sets the Redis key namespace (default "swarmkit:trust").
func WithTrustKeyPrefix(prefix string) RedisTrustStoreOption {
	return func(c *redisTrustConfig) { c.keyPrefix = prefix }
}

// WithTrustTTL sets the TTL applied to each stored record (default 0, no expiry).
func WithTrustTTL(ttl time.Duration) RedisTrustStoreOption {
	return func(c *redisTrustConfig) { c.ttl = ttl }
}

// RedisTrustStore persists the trust ledger in Redis, one hash-style
// JSON blob per worker under "<prefix>:worker:<id>" plus a set index
// "<prefix>:workers" for GetAll — the same main-record-plus-index-set
// shape the teacher's RedisRegistry uses for service records.
type RedisTrustStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTrustStore connects to redisURL and returns a RedisTrustStore.
func NewRedisTrustStore(redisURL string, opts ...RedisTrustStoreOption) (*RedisTrustStore, error) {
	cfg := &redisTrustConfig{keyPrefix: "swarmkit:trust"}
	for _, opt := range opts {
		opt(cfg)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL for trust store: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis trust store at %s: %w", redisURL, err)
	}

	return &RedisTrustStore{client: client, keyPrefix: cfg.keyPrefix, ttl: cfg.ttl}, nil
}

func (s *RedisTrustStore) workerKey(id string) string { return s.keyPrefix + ":worker:" + id }
func (s *RedisTrustStore) indexKey() string            { return s.keyPrefix + ":workers" }

func (s *RedisTrustStore) GetAll(ctx context.Context) (map[string]*trust.Record, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list trust worker index: %w", err)
	}
	out := make(map[string]*trust.Record, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.workerKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read trust record %s: %w", id, err)
		}
		var r trust.Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode trust record %s: %w", id, err)
		}
		out[id] = &r
	}
	return out, nil
}

// UpsertBatch writes every update atomically via a Redis transaction
// pipeline, mirroring RedisRegistry.Register's "Use atomic
// transactions" pattern.
func (s *RedisTrustStore) UpsertBatch(ctx context.Context, updates []*trust.Record) error {
	if len(updates) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, r := range updates {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode trust record %s: %w", r.WorkerID, err)
		}
		pipe.Set(ctx, s.workerKey(r.WorkerID), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), r.WorkerID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert trust batch atomically: %w", err)
	}
	return nil
}

func (s *RedisTrustStore) Flush(context.Context) error { return nil }

// RedisCheckpointStore persists checkpoint blobs in Redis under
// "<prefix>:blob:<intent_id>:<attempt_n>" with a per-intent attempt
// index set "<prefix>:attempts:<intent_id>" (prefix defaults to
// "swarmkit:checkpoint"), following hitl_checkpoint_store.go's key layout.
type RedisCheckpointStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCheckpointStore connects to redisURL and returns a
// RedisCheckpointStore with the given TTL for checkpoint entries.
func NewRedisCheckpointStore(redisURL, keyPrefix string, ttl time.Duration) (*RedisCheckpointStore, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL for checkpoint store: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis checkpoint store at %s: %w", redisURL, err)
	}
	if keyPrefix == "" {
		keyPrefix = "swarmkit:checkpoint"
	}
	return &RedisCheckpointStore{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (s *RedisCheckpointStore) blobKey(intentID string, attemptN int) string {
	return fmt.Sprintf("%s:blob:%s:%d", s.keyPrefix, intentID, attemptN)
}

func (s *RedisCheckpointStore) attemptIndexKey(intentID string) string {
	return fmt.Sprintf("%s:attempts:%s", s.keyPrefix, intentID)
}

func (s *RedisCheckpointStore) Put(ctx context.Context, intentID string, attemptN int, blob []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.blobKey(intentID, attemptN), blob, s.ttl)
	pipe.SAdd(ctx, s.attemptIndexKey(intentID), attemptN)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.attemptIndexKey(intentID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put checkpoint %s/%d: %w", intentID, attemptN, err)
	}
	return nil
}

func (s *RedisCheckpointStore) Get(ctx context.Context, intentID string, attemptN int) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.blobKey(intentID, attemptN)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get checkpoint %s/%d: %w", intentID, attemptN, err)
	}
	return data, true, nil
}

func (s *RedisCheckpointStore) Latest(ctx context.Context, intentID string) (*CheckpointRecord, bool, error) {
	attempts, err := s.client.SMembers(ctx, s.attemptIndexKey(intentID)).Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("list checkpoint attempts for %s: %w", intentID, err)
	}
	best := -1
	for _, a := range attempts {
		n, err := strconv.Atoi(a)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best < 0 {
		return nil, false, nil
	}
	blob, ok, err := s.Get(ctx, intentID, best)
	if err != nil || !ok {
		return nil, false, err
	}
	return &CheckpointRecord{IntentID: intentID, AttemptN: best, Blob: blob, UpdatedAt: time.Now().UTC()}, true, nil
}

func (s *RedisCheckpointStore) Delete(ctx context.Context, intentID string) error {
	attempts, err := s.client.SMembers(ctx, s.attemptIndexKey(intentID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("list checkpoint attempts for delete %s: %w", intentID, err)
	}
	pipe := s.client.TxPipeline()
	for _, a := range attempts {
		n, err := strconv.Atoi(a)
		if err != nil {
			continue
		}
		pipe.Del(ctx, s.blobKey(intentID, n))
	}
	pipe.Del(ctx, s.attemptIndexKey(intentID))
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete checkpoints for %s: %w", intentID, err)
	}
	return nil
}

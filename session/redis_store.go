package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys in a shared Redis.
const DefaultKeyPrefix = "sess"

const defaultScanBatch = 1000

// RedisStore is the remote Store backend. Expiry is delegated to Redis key
// TTLs, so an expired key is absent without any sweep.
//
// The client is owned by the caller; Close does not close it.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string

	scanBatch int64
	// singleKeyDeletes is set for cluster clients: session keys carry no
	// hash tag, so a multi-key DEL fails with CROSSSLOT.
	singleKeyDeletes bool
}

// NewRedisStore returns a RedisStore writing keys as "<prefix>:<id>".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	_, clustered := client.(*redis.ClusterClient)
	return &RedisStore{
		redis:            client,
		prefix:           prefix,
		scanBatch:        defaultScanBatch,
		singleKeyDeletes: clustered,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

// Get implements Store. A payload that no longer decodes is reported as
// absent so a stale cookie degrades to an anonymous session.
func (s *RedisStore) Get(ctx context.Context, id string) (Record, bool, error) {
	key := s.key(id)

	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	raw, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return Record{}, false, nil
	}

	data, err := Decode(raw)
	if err != nil {
		return Record{}, false, nil
	}

	return Record{ID: id, Data: data, ExpiresAt: time.Now().Add(ttl)}, true, nil
}

// Set implements Store. A non-positive maxAge selects DefaultMaxAge.
func (s *RedisStore) Set(ctx context.Context, id string, data Data, maxAge time.Duration) error {
	raw, err := Encode(data)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(id), raw, normalizeMaxAge(maxAge)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Touch implements Store. PEXPIRE on a missing key is a no-op.
func (s *RedisStore) Touch(ctx context.Context, id string, maxAge time.Duration) error {
	if err := s.redis.PExpire(ctx, s.key(id), normalizeMaxAge(maxAge)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Destroy implements Store.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Count implements Store by scanning the key prefix. SCAN may return a key
// more than once, so keys are de-duplicated. It is O(keys) in time and
// memory and meant for operational endpoints, not the request path.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	seen := make(map[string]struct{})
	err := s.forEachNode(ctx, func(ctx context.Context, node redis.Cmdable) error {
		return s.scan(ctx, node, func(keys []string) error {
			for _, k := range keys {
				seen[k] = struct{}{}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return len(seen), nil
}

// Clear implements Store. Only keys under the store prefix are removed.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.forEachNode(ctx, func(ctx context.Context, node redis.Cmdable) error {
		return s.scan(ctx, node, func(keys []string) error {
			return s.deleteKeys(ctx, node, keys)
		})
	})
}

func (s *RedisStore) deleteKeys(ctx context.Context, node redis.Cmdable, keys []string) error {
	if !s.singleKeyDeletes {
		if err := node.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	pipe := node.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks connectivity and reports the round trip.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return nil
}

// forEachNode runs fn against every master when the client is a cluster
// client, since SCAN only walks the node it is sent to.
func (s *RedisStore) forEachNode(ctx context.Context, fn func(context.Context, redis.Cmdable) error) error {
	if cc, ok := s.redis.(*redis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return fn(ctx, node)
		})
	}
	return fn(ctx, s.redis)
}

func (s *RedisStore) scan(ctx context.Context, node redis.Cmdable, fn func(keys []string) error) error {
	var cursor uint64
	pattern := s.prefix + ":*"

	for {
		keys, next, err := node.Scan(ctx, cursor, pattern, s.scanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

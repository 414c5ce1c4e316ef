package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "xs")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisStoreSetGet(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "s1", testData(), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("xs:s1") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("xs:s1"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	rec, ok, err := store.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.Data.UserID != "user-1" || rec.Data.Username != "john" {
		t.Fatalf("unexpected data %+v", rec.Data)
	}
	if !rec.Data.LoginTime.Equal(testData().LoginTime) {
		t.Fatalf("login time not preserved: %v", rec.Data.LoginTime)
	}
	if time.Until(rec.ExpiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", rec.ExpiresAt)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Set(ctx, "s1", testData(), time.Minute)
	mr.FastForward(time.Minute)

	if _, ok, err := store.Get(ctx, "s1"); ok || err != nil {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreTouch(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Set(ctx, "s1", testData(), time.Minute)
	mr.FastForward(30 * time.Second)
	if err := store.Touch(ctx, "s1", time.Hour); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if ttl := mr.TTL("xs:s1"); ttl != time.Hour {
		t.Fatalf("expected ttl reset to 1h, got %v", ttl)
	}

	if err := store.Touch(ctx, "ghost", time.Hour); err != nil {
		t.Fatalf("touch missing: %v", err)
	}
	if mr.Exists("xs:ghost") {
		t.Fatal("touch must not create keys")
	}
}

func TestRedisStoreDestroyIdempotent(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Set(ctx, "s1", testData(), time.Hour)
	if err := store.Destroy(ctx, "s1"); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := store.Destroy(ctx, "s1"); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "s1"); ok {
		t.Fatal("destroyed session still readable")
	}
}

func TestRedisStoreCountAndClearRespectPrefix(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_ = store.Set(ctx, fmt.Sprintf("s%d", i), testData(), time.Hour)
	}
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 25 {
		t.Fatalf("expected 25, got %d", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("expected 0 after clear, got %d", n)
	}
	if !mr.Exists("other:key") {
		t.Fatal("clear removed a key outside the prefix")
	}
}

// delArity records how many keys each DEL carried.
type delArity struct {
	mu   sync.Mutex
	keys []int
}

func (h *delArity) record(cmd redis.Cmder) {
	if cmd.Name() != "del" {
		return
	}
	h.mu.Lock()
	h.keys = append(h.keys, len(cmd.Args())-1)
	h.mu.Unlock()
}

func (h *delArity) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *delArity) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.record(cmd)
		return next(ctx, cmd)
	}
}

func (h *delArity) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			h.record(cmd)
		}
		return next(ctx, cmds)
	}
}

func TestRedisStoreClearSingleKeyDeletes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hook := &delArity{}
	rdb.AddHook(hook)

	store := NewRedisStore(rdb, "xs")
	if store.singleKeyDeletes {
		t.Fatal("a single-node client must not select single-key deletes")
	}
	store.singleKeyDeletes = true
	store.scanBatch = 3
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Set(ctx, fmt.Sprintf("s%d", i), testData(), time.Hour); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	_ = mr.Set("other:key", "keep")

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("expected 0 after clear, got %d", n)
	}
	if !mr.Exists("other:key") {
		t.Fatal("clear removed a key outside the prefix")
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.keys) != 10 {
		t.Fatalf("expected one DEL per key, got %d DELs", len(hook.keys))
	}
	for _, n := range hook.keys {
		if n != 1 {
			t.Fatalf("expected single-key DEL, got %d keys", n)
		}
	}
}

func TestRedisStoreClusterClientSelectsSingleKeyDeletes(t *testing.T) {
	cc := redis.NewClusterClient(&redis.ClusterOptions{Addrs: []string{"127.0.0.1:1"}})
	defer cc.Close()
	if !NewRedisStore(cc, "xs").singleKeyDeletes {
		t.Fatal("cluster client must select single-key deletes")
	}
}

func TestRedisStoreCountAcrossScanBatches(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	store.scanBatch = 2
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_ = store.Set(ctx, fmt.Sprintf("s%d", i), testData(), time.Hour)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 11 {
		t.Fatalf("expected 11 distinct keys, got %d", n)
	}
}

func TestRedisStoreCorruptPayloadIsAbsent(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()

	_ = mr.Set("xs:bad", "\x09garbage")
	mr.SetTTL("xs:bad", time.Hour)

	if _, ok, err := store.Get(context.Background(), "bad"); ok || err != nil {
		t.Fatalf("expected corrupt payload to read as miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("get: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Set(ctx, "s1", testData(), time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("set: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Destroy(ctx, "s1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("destroy: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping: expected ErrStoreUnavailable, got %v", err)
	}
}

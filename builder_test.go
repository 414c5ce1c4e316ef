package goSession

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func remoteConfig() Config {
	cfg := testConfig()
	cfg.Store.Backend = BackendRemoteCache
	cfg.Store.Remote.DialTimeout = 500 * time.Millisecond
	return cfg
}

func TestBuildRemoteWithInjectedClient(t *testing.T) {
	mr, rdb := newTestRedis(t)

	engine, err := New().WithConfig(remoteConfig()).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.Backend() != BackendRemoteCache {
		t.Fatalf("expected remote backend, got %q", engine.Backend())
	}

	id := loginAndCommit(t, engine, "1", "john")
	if !mr.Exists("sess:" + id) {
		t.Fatalf("expected session key in redis, keys=%v", mr.Keys())
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("engine must not close an injected client: %v", err)
	}
}

func TestBuildRemoteFromConfig(t *testing.T) {
	mr, _ := newTestRedis(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := remoteConfig()
	cfg.Store.Remote.Host = host
	cfg.Store.Remote.Port = port
	cfg.Store.Remote.KeyPrefix = "xs"

	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.Backend() != BackendRemoteCache || engine.ownedRedis == nil {
		t.Fatalf("expected owned remote client, backend=%q", engine.Backend())
	}
	id := loginAndCommit(t, engine, "1", "john")
	if !mr.Exists("xs:" + id) {
		t.Fatalf("expected prefixed key, keys=%v", mr.Keys())
	}
}

func TestBuildRemoteUnreachableFallsBackToLocal(t *testing.T) {
	cfg := remoteConfig()
	cfg.Store.Remote.Host = "127.0.0.1"
	cfg.Store.Remote.Port = 1
	cfg.Store.Remote.DialTimeout = 200 * time.Millisecond

	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build must not fail when the remote is down: %v", err)
	}
	defer engine.Close()

	if engine.Backend() != BackendLocal {
		t.Fatalf("expected local fallback, got %q", engine.Backend())
	}
	if got := engine.metrics.Value(MetricStoreFallback); got != 1 {
		t.Fatalf("expected fallback to be counted, got %d", got)
	}
	loginAndCommit(t, engine, "1", "john")
}

func TestBuildFallsBackWhenInjectedClientIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	engine, err := New().WithConfig(remoteConfig()).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.Backend() != BackendLocal {
		t.Fatalf("expected local fallback, got %q", engine.Backend())
	}
}

func TestBuildRequiresSecretUnlessEphemeralAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Secret = nil

	if _, err := New().WithConfig(cfg).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without secret, got %v", err)
	}

	cfg.Session.AllowEphemeralSecret = true
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build with ephemeral secret failed: %v", err)
	}
	defer engine.Close()

	value, err := engine.SignSessionID("sid-1")
	if err != nil {
		t.Fatalf("sign with ephemeral secret: %v", err)
	}
	if _, ok := engine.VerifySessionCookie(value); !ok {
		t.Fatal("ephemeral secret must verify its own cookies")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderCopiesConfig(t *testing.T) {
	cfg := testConfig()
	secret := append([]byte(nil), cfg.Session.Secret...)
	cfg.Session.Secret = secret

	b := New().WithConfig(cfg)
	secret[0] ^= 0xFF

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if engine.config.Session.Secret[0] == secret[0] {
		t.Fatal("builder must not alias the caller's secret")
	}
}

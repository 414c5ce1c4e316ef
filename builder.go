package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/session"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger logr.Logger
	clock  clock.Clock

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: logr.Discard(),
	}
}

// WithConfig replaces the configuration. Build validates it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the logger for the engine and its store.
func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.logger = l
	return b
}

// WithRedis injects the client used by the remote-cache backend. The engine
// does not close an injected client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets where audit events go when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram. It requires
// metrics to be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// Build validates the configuration, resolves the cookie secret and opens
// the session backend. A remote-cache backend that cannot be reached is
// replaced by the local store; the choice is made once here.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}

	// -------- COOKIE SECRET --------
	if len(cfg.Session.Secret) == 0 {
		secret, err := internal.NewCookieSecret()
		if err != nil {
			return nil, err
		}
		cfg.Session.Secret = secret
		log.Info("no session secret configured; generated an ephemeral one, sessions will not survive a restart",
			"environment", cfg.Environment)
	}

	policy := cookie.Policy{
		Prefix:            cfg.Session.CookiePrefix,
		Environment:       cfg.Environment,
		KnownEnvironments: cfg.Session.KnownEnvironments,
		MaxAge:            cfg.Session.MaxAge,
		TrustProxy:        cfg.Session.TrustProxy,
	}
	signer, err := cookie.NewSigner(cookie.SignerConfig{
		Secret: cfg.Session.Secret,
		Issuer: policy.Name(),
		TTL:    cfg.Session.MaxAge,
		Leeway: cfg.Session.CookieLeeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		signer:  signer,
		policy:  policy,
		log:     log,
		clock:   clk,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, log.WithName("audit")),
	}

	// -------- SESSION STORE --------
	engine.store, engine.backend, engine.ownedRedis = b.openStore(cfg, engine.metrics, clk)
	log.Info("session store ready", "backend", engine.backend, "cookie", policy.Name())

	b.built = true

	return engine, nil
}

func (b *Builder) openStore(cfg Config, metrics *Metrics, clk clock.Clock) (session.Store, string, redis.UniversalClient) {
	log := b.logger

	if cfg.Store.Backend == BackendRemoteCache {
		remote := cfg.Store.Remote
		client, owned := b.redis, false
		if client == nil {
			client, owned = newRedisClient(remote), true
		}

		rs := session.NewRedisStore(client, remote.KeyPrefix)

		ctx, cancel := context.WithTimeout(context.Background(), remote.DialTimeout)
		_, err := rs.Ping(ctx)
		cancel()
		if err == nil {
			if owned {
				return rs, BackendRemoteCache, client
			}
			return rs, BackendRemoteCache, nil
		}

		log.Error(err, "remote session store unreachable, falling back to local store", "addr", remote.Addr())
		metrics.Inc(MetricStoreFallback)
		if owned {
			_ = client.Close()
		}
	}

	mem := session.NewMemoryStore(session.MemoryOptions{
		Clock:         clk,
		Logger:        log.WithName("memory-store"),
		SweepInterval: cfg.Store.SweepInterval,
		OnSweep: func(evicted int) {
			metrics.Add(MetricSessionSwept, uint64(evicted))
		},
	})
	return mem, BackendLocal, nil
}

func newRedisClient(remote RemoteConfig) redis.UniversalClient {
	if remote.AutoDiscovery {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       []string{remote.Addr()},
			Password:    remote.Password,
			DialTimeout: remote.DialTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:        remote.Addr(),
		Password:    remote.Password,
		DB:          remote.DB,
		DialTimeout: remote.DialTimeout,
	})
}

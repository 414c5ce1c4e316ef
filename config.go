package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/cookie"
)

// Config holds everything the Engine needs. It is read once by Build and
// treated as immutable afterwards.
type Config struct {
	// Environment selects the cookie name suffix, e.g. "dev", "qa", "prod".
	Environment string
	Session     SessionConfig
	Store       StoreConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls cookies and session lifetime.
type SessionConfig struct {
	// CookiePrefix is joined with Environment to form the cookie name.
	CookiePrefix string
	// Secret signs cookie values. Required unless AllowEphemeralSecret.
	Secret []byte
	MaxAge time.Duration
	// Rolling refreshes the expiry on every request that carries a live session.
	Rolling bool
	// KnownEnvironments lists every environment whose cookie logout clears.
	KnownEnvironments []string
	// AllowEphemeralSecret lets Build generate a random secret when Secret is
	// empty. Sessions then do not survive a restart.
	AllowEphemeralSecret bool
	// TrustProxy honours X-Forwarded-Proto for the Secure attribute.
	TrustProxy bool
	// CookieLeeway is the clock skew tolerated when verifying a cookie
	// signed by another instance.
	CookieLeeway time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

const (
	// BackendLocal keeps sessions in process memory.
	BackendLocal = "local"
	// BackendRemoteCache keeps sessions in Redis.
	BackendRemoteCache = "remote-cache"
)

// StoreConfig selects and tunes the session backend.
type StoreConfig struct {
	Backend string
	// SweepInterval applies to the local backend only.
	SweepInterval time.Duration
	Remote        RemoteConfig
}

// RemoteConfig locates the Redis used by the remote-cache backend. It is
// ignored when a client is injected with Builder.WithRedis.
type RemoteConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// AutoDiscovery treats Host:Port as a cluster seed.
	AutoDiscovery bool
	DialTimeout   time.Duration
	KeyPrefix     string
}

// Addr returns "host:port".
func (r RemoteConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit delivery.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development configuration. Secret is left empty
// and AllowEphemeralSecret is set, so it builds without extra input.
func DefaultConfig() Config {
	return Config{
		Environment: "dev",
		Session: SessionConfig{
			CookiePrefix:         "xinvestment-session",
			MaxAge:               24 * time.Hour,
			Rolling:              true,
			KnownEnvironments:    []string{"dev", "qa", "prod"},
			AllowEphemeralSecret: true,
			CookieLeeway:         5 * time.Second,
		},
		Store: StoreConfig{
			Backend:       BackendLocal,
			SweepInterval: 10 * time.Minute,
			Remote: RemoteConfig{
				Host:        "localhost",
				Port:        6379,
				DialTimeout: 2 * time.Second,
				KeyPrefix:   "sess",
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	out.Session.KnownEnvironments = append([]string(nil), cfg.Session.KnownEnvironments...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first problem found, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Environment) == "" {
		return errors.New("Environment must be set")
	}
	if strings.ContainsAny(c.Environment, " ;=,") {
		return fmt.Errorf("Environment %q is not cookie-name safe", c.Environment)
	}

	// Session
	if strings.TrimSpace(c.Session.CookiePrefix) == "" {
		return errors.New("Session CookiePrefix must be set")
	}
	if strings.ContainsAny(c.Session.CookiePrefix, " ;=,") {
		return fmt.Errorf("Session CookiePrefix %q is not cookie-name safe", c.Session.CookiePrefix)
	}
	if c.Session.MaxAge < time.Second {
		return errors.New("Session MaxAge must be >= 1s")
	}
	if len(c.Session.Secret) == 0 && !c.Session.AllowEphemeralSecret {
		return errors.New("Session Secret is required")
	}
	if n := len(c.Session.Secret); n > 0 && n < 16 {
		return fmt.Errorf("Session Secret must be >= 16 bytes, got %d", n)
	}
	if c.Session.CookieLeeway < 0 || c.Session.CookieLeeway > cookie.MaxLeeway {
		return fmt.Errorf("Session CookieLeeway must be within [0, %s]", cookie.MaxLeeway)
	}
	for _, env := range c.Session.KnownEnvironments {
		if strings.TrimSpace(env) == "" {
			return errors.New("Session KnownEnvironments contains an empty entry")
		}
	}

	// Store
	switch c.Store.Backend {
	case BackendLocal:
		if c.Store.SweepInterval < 0 {
			return errors.New("Store SweepInterval must be >= 0")
		}
	case BackendRemoteCache:
		if c.Store.Remote.DialTimeout <= 0 {
			return errors.New("Store Remote DialTimeout must be > 0")
		}
		if strings.TrimSpace(c.Store.Remote.KeyPrefix) == "" {
			return errors.New("Store Remote KeyPrefix must be set")
		}
		if c.Store.Remote.DB < 0 {
			return errors.New("Store Remote DB must be >= 0")
		}
		if c.Store.Remote.AutoDiscovery && c.Store.Remote.DB != 0 {
			return errors.New("Store Remote DB must be 0 with AutoDiscovery")
		}
	default:
		return fmt.Errorf("Store Backend must be %q or %q, got %q", BackendLocal, BackendRemoteCache, c.Store.Backend)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning flags a valid but risky setting.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint returns advisory warnings. It never fails; call Validate for hard errors.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if len(c.Session.Secret) == 0 && c.Session.AllowEphemeralSecret {
		add("ephemeral_secret", "sessions will not survive a restart and cannot be shared across instances")
	}
	if c.Session.MaxAge > 7*24*time.Hour {
		add("max_age_long", "session MaxAge exceeds 7 days")
	}
	if !c.Session.Rolling {
		add("rolling_disabled", "active users will be logged out at a fixed time after login")
	}
	if !containsString(c.Session.KnownEnvironments, c.Environment) {
		add("environment_unknown", "Environment is not listed in KnownEnvironments")
	}
	if c.Store.Backend == BackendLocal && c.Store.SweepInterval == 0 {
		add("sweep_default", "SweepInterval unset; the default interval applies")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "audit emission blocks requests when the buffer is full")
	}

	return ws
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

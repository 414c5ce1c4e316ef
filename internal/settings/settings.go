// Package settings loads the server's file configuration.
//
// A settings file is one YAML document. Its top level holds the base values
// and an optional environments map; the entry named by the active
// environment is decoded over the base, so it only needs the keys it
// changes:
//
//	environment: dev
//	port: 3000
//	store:
//	  backend: local
//	environments:
//	  prod:
//	    port: 3001
//	    store:
//	      backend: remote-cache
//
// The active environment is, in order: the explicit argument to Load, the
// APP_ENV variable, the file's environment key, then "dev". After the
// override, SESSION_SECRET, PORT and REDIS_ADDR replace the file values.
package settings

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAppEnv        = "APP_ENV"
	EnvSessionSecret = "SESSION_SECRET"
	EnvPort          = "PORT"
	EnvRedisAddr     = "REDIS_ADDR"
)

// ErrInvalidSettings wraps every validation failure from Load and Validate.
var ErrInvalidSettings = errors.New("settings: invalid")

// Settings is the full server configuration.
type Settings struct {
	Environment string          `yaml:"environment"`
	Port        int             `yaml:"port"`
	StaticDir   string          `yaml:"static_dir"`
	LogLevel    string          `yaml:"log_level"`
	Session     SessionSettings `yaml:"session"`
	Store       StoreSettings   `yaml:"store"`
	Audit       AuditSettings   `yaml:"audit"`
	Metrics     MetricsSettings `yaml:"metrics"`

	Environments map[string]yaml.Node `yaml:"environments,omitempty"`
}

// SessionSettings maps onto goSession.SessionConfig.
type SessionSettings struct {
	CookiePrefix         string        `yaml:"cookie_prefix"`
	Secret               string        `yaml:"secret"`
	MaxAge               time.Duration `yaml:"max_age"`
	Rolling              bool          `yaml:"rolling"`
	KnownEnvironments    []string      `yaml:"known_environments"`
	AllowEphemeralSecret bool          `yaml:"allow_ephemeral_secret"`
	TrustProxy           bool          `yaml:"trust_proxy"`
	CookieLeeway         time.Duration `yaml:"cookie_leeway"`
}

// StoreSettings selects and configures the session backend.
type StoreSettings struct {
	Backend       string         `yaml:"backend"`
	SweepInterval time.Duration  `yaml:"sweep_interval"`
	Remote        RemoteSettings `yaml:"remote"`
}

// RemoteSettings addresses the Redis server or cluster.
type RemoteSettings struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	AutoDiscovery bool          `yaml:"auto_discovery"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

// AuditSettings maps onto goSession.AuditConfig.
type AuditSettings struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsSettings maps onto goSession.MetricsConfig.
type MetricsSettings struct {
	Enabled           bool `yaml:"enabled"`
	LatencyHistograms bool `yaml:"latency_histograms"`
}

// Default returns the settings used before any file is read.
func Default() *Settings {
	engine := goSession.DefaultConfig()
	return &Settings{
		Environment: engine.Environment,
		Port:        3000,
		StaticDir:   "client",
		LogLevel:    "info",
		Session: SessionSettings{
			CookiePrefix:         engine.Session.CookiePrefix,
			MaxAge:               engine.Session.MaxAge,
			Rolling:              engine.Session.Rolling,
			KnownEnvironments:    append([]string(nil), engine.Session.KnownEnvironments...),
			AllowEphemeralSecret: engine.Session.AllowEphemeralSecret,
			CookieLeeway:         engine.Session.CookieLeeway,
		},
		Store: StoreSettings{
			Backend:       engine.Store.Backend,
			SweepInterval: engine.Store.SweepInterval,
			Remote: RemoteSettings{
				Host:        engine.Store.Remote.Host,
				Port:        engine.Store.Remote.Port,
				DialTimeout: engine.Store.Remote.DialTimeout,
				KeyPrefix:   engine.Store.Remote.KeyPrefix,
			},
		},
		Audit: AuditSettings{
			Enabled:    engine.Audit.Enabled,
			BufferSize: engine.Audit.BufferSize,
			DropIfFull: engine.Audit.DropIfFull,
		},
		Metrics: MetricsSettings{
			Enabled:           engine.Metrics.Enabled,
			LatencyHistograms: engine.Metrics.EnableLatencyHistograms,
		},
	}
}

// Load reads path (skipped when empty), applies the override for the active
// environment and then the environment variables. env, when non-empty,
// selects the environment ahead of APP_ENV.
func Load(path, env string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	switch {
	case env != "":
	case os.Getenv(EnvAppEnv) != "":
		env = os.Getenv(EnvAppEnv)
	case s.Environment != "":
		env = s.Environment
	default:
		env = "dev"
	}

	if node, ok := s.Environments[env]; ok {
		if err := node.Decode(s); err != nil {
			return nil, fmt.Errorf("parse %s overrides: %w", env, err)
		}
	}
	s.Environment = env
	s.Environments = nil

	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv(EnvSessionSecret); v != "" {
		s.Session.Secret = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidSettings, EnvPort, v)
		}
		s.Port = port
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		host, portStr, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidSettings, EnvRedisAddr, v, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("%w: %s=%q has a bad port", ErrInvalidSettings, EnvRedisAddr, v)
		}
		s.Store.Backend = goSession.BackendRemoteCache
		s.Store.Remote.Host = host
		s.Store.Remote.Port = port
	}
	return nil
}

// Validate checks the server-level fields. Engine fields are checked by
// goSession.Config.Validate when the engine is built.
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	switch s.LogLevel {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("%w: log_level must be debug, info or error, got %q", ErrInvalidSettings, s.LogLevel)
	}
	return nil
}

// Verbosity maps LogLevel to a logr verbosity.
func (s *Settings) Verbosity() int {
	if s.LogLevel == "debug" {
		return 1
	}
	return 0
}

// Addr is the listen address.
func (s *Settings) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// EngineConfig converts the settings to a goSession.Config.
func (s *Settings) EngineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Environment = s.Environment

	cfg.Session.CookiePrefix = s.Session.CookiePrefix
	cfg.Session.MaxAge = s.Session.MaxAge
	cfg.Session.Rolling = s.Session.Rolling
	cfg.Session.KnownEnvironments = append([]string(nil), s.Session.KnownEnvironments...)
	cfg.Session.AllowEphemeralSecret = s.Session.AllowEphemeralSecret
	cfg.Session.TrustProxy = s.Session.TrustProxy
	cfg.Session.CookieLeeway = s.Session.CookieLeeway
	cfg.Session.Secret = nil
	if s.Session.Secret != "" {
		cfg.Session.Secret = []byte(s.Session.Secret)
	}

	cfg.Store.Backend = s.Store.Backend
	cfg.Store.SweepInterval = s.Store.SweepInterval
	cfg.Store.Remote = goSession.RemoteConfig{
		Host:          s.Store.Remote.Host,
		Port:          s.Store.Remote.Port,
		Password:      s.Store.Remote.Password,
		DB:            s.Store.Remote.DB,
		AutoDiscovery: s.Store.Remote.AutoDiscovery,
		DialTimeout:   s.Store.Remote.DialTimeout,
		KeyPrefix:     s.Store.Remote.KeyPrefix,
	}

	cfg.Audit = goSession.AuditConfig{
		Enabled:    s.Audit.Enabled,
		BufferSize: s.Audit.BufferSize,
		DropIfFull: s.Audit.DropIfFull,
	}
	cfg.Metrics = goSession.MetricsConfig{
		Enabled:                 s.Metrics.Enabled,
		EnableLatencyHistograms: s.Metrics.LatencyHistograms,
	}
	return cfg
}

// Command xinvestment-server serves the demo application: session-backed
// login, the household and todo APIs and the static client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/settings"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath = pflag.String("config", "", "path to the YAML settings file")
		env        = pflag.String("env", "", "environment to run as (overrides APP_ENV and the file)")
		port       = pflag.Int("port", 0, "listen port (overrides PORT and the file)")
		staticDir  = pflag.String("static", "", "directory holding the client pages")
	)
	pflag.Parse()

	logger := stdr.NewWithOptions(log.New(os.Stderr, "", log.LstdFlags), stdr.Options{LogCaller: stdr.Error})

	if err := run(logger, *configPath, *env, *port, *staticDir); err != nil {
		logger.Error(err, "server failed")
		os.Exit(1)
	}
}

func run(logger logr.Logger, configPath, env string, port int, staticDir string) error {
	s, err := settings.Load(configPath, env)
	if err != nil {
		return err
	}
	if port != 0 {
		s.Port = port
	}
	if staticDir != "" {
		s.StaticDir = staticDir
	}
	if err := s.Validate(); err != nil {
		return err
	}
	stdr.SetVerbosity(s.Verbosity())
	logger = logger.WithName("xinvestment")

	cfg := s.EngineConfig()
	for _, w := range cfg.Lint() {
		logger.Info("config warning", "code", w.Code, "message", w.Message)
	}

	builder := goSession.New().WithConfig(cfg).WithLogger(logger.WithName("session"))
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goSession.NewJSONWriterSink(os.Stdout))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build session engine: %w", err)
	}
	defer engine.Close()

	opts := httpapi.Options{Engine: engine, StaticDir: s.StaticDir}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.NewExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           httpapi.New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "environment", s.Environment,
			"cookie", engine.CookiePolicy().Name(), "backend", engine.Backend())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

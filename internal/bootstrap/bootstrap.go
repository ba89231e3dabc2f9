// Package bootstrap holds the startup sequence shared by the background
// workers: environment, config, logger, database and dev migrations.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/instance"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/migrate"
)

// Runtime is what every worker needs before wiring its own components.
type Runtime struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Metrics *prometheus.Registry

	closers []func() error
}

// Open loads .env (when present) and the environment, then connects to the
// database. The caller must Close the runtime.
func Open(ctx context.Context, service string) (*Runtime, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instance.GetID()})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt := &Runtime{Config: cfg, Logger: logg, DB: dbClient, Metrics: prometheus.NewRegistry()}
	rt.OnClose(dbClient.Close)
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		rt.Close()
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	rt.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return rt, nil
}

// Context tags ctx with the fields every worker log line carries.
func (rt *Runtime) Context(ctx context.Context, kind string) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": kind,
		"instance":    instance.GetID(),
	})
}

// OnClose registers fn to run on Close, in reverse order.
func (rt *Runtime) OnClose(fn func() error) {
	rt.closers = append(rt.closers, fn)
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.Logger.Error(context.Background(), "bootstrap.close_failed", err)
		}
	}
	rt.closers = nil
}

// ServeMetrics exposes the runtime registry on the configured worker metrics
// address until ctx ends. It is a no-op when no address is set.
func (rt *Runtime) ServeMetrics(ctx context.Context) {
	addr := rt.Config.App.WorkerMetricsAddr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{Registry: rt.Metrics}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(ctx, "bootstrap.metrics_listener_failed", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	rt.Logger.Info(rt.Logger.WithField(ctx, "addr", addr), "bootstrap.metrics_listening")
}

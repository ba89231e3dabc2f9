// Command cron-worker runs the periodic maintenance jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/surplus-backend/internal/bootstrap"
	"github.com/angelmondragon/surplus-backend/internal/cron"
	products "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *once); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "cron-worker:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	rt, err := bootstrap.Open(ctx, "cron-worker")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = rt.Context(ctx, "cron-worker")

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	rt.OnClose(redisClient.Close)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	locker, err := cron.NewRedisLocker(redisClient, redisClient.LockKey("cron-worker", env), 0)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(rt)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(rt.Metrics),
		Interval: cfg.Cron.Interval(),
	})
	if err != nil {
		return err
	}

	if once {
		return service.RunOnce(ctx)
	}
	rt.ServeMetrics(ctx)
	logg.Info(ctx, "cron worker started")
	return service.Run(ctx)
}

func buildJobs(rt *bootstrap.Runtime) (*cron.Registry, error) {
	cfg := rt.Config
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           rt.Logger,
		DB:               rt.DB,
		Repository:       outbox.NewRepository(rt.DB.DB()),
		RetentionDays:    cfg.Cron.OutboxRetentionDays,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	var expiry cron.Job
	if cfg.Cron.ExpireListings {
		if expiry, err = cron.NewListingExpiryJob(rt.Logger, products.NewRepository(rt.DB.DB())); err != nil {
			return nil, fmt.Errorf("listing expiry job: %w", err)
		}
	}

	registry := cron.NewRegistry()
	if err := registry.Add(retention, expiry); err != nil {
		return nil, err
	}
	return registry, nil
}

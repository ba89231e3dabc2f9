// Command outbox-publisher relays committed outbox rows to Pub/Sub.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/surplus-backend/internal/bootstrap"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/outbox/registry"
	"github.com/angelmondragon/surplus-backend/pkg/pubsub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "outbox-publisher:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rt, err := bootstrap.Open(ctx, "outbox-publisher")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = rt.Context(ctx, "outbox-publisher")

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, events.Topics(), logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose(client.Close)

	gormDB := rt.DB.DB()
	relay, err := NewRelay(RelayParams{
		Outbox:   cfg.Outbox,
		Logger:   logg,
		DB:       rt.DB,
		PubSub:   client,
		Rows:     outbox.NewRepository(gormDB),
		Registry: events,
		DLQ:      outbox.NewDLQRepository(gormDB),
		Metrics:  metrics.NewOutboxMetrics(rt.Metrics),
	})
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	rt.ServeMetrics(ctx)
	logg.Info(ctx, "outbox publisher started")
	err = relay.Run(ctx)
	logg.Info(ctx, "outbox publisher stopped")
	return err
}

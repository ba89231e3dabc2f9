package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

type expiredListingStore interface {
	DeactivateExpired(ctx context.Context, today time.Time) (int64, error)
}

// NewListingExpiryJob turns off listings whose expiry date has passed so
// vendor dashboards stop counting them as active.
func NewListingExpiryJob(logg *logger.Logger, store expiredListingStore) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &listingExpiryJob{logg: logg, store: store, now: time.Now}, nil
}

type listingExpiryJob struct {
	logg  *logger.Logger
	store expiredListingStore
	now   func() time.Time
}

func (j *listingExpiryJob) Name() string { return "listing-expiry" }

func (j *listingExpiryJob) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := j.store.DeactivateExpired(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired listings: %w", err)
	}
	if n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "deactivated", n), "cron.listings_expired")
	}
	return n, nil
}

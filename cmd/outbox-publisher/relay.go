package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	"github.com/angelmondragon/surplus-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	batchPublishWait   = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publisher is the slice of *pubsub.Publisher the relay uses.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   topicSource
	Rows     rowStore
	Registry resolver
	DLQ      deadLetterStore
	Metrics  *metrics.OutboxMetrics

	publisherFor func(topic string) publisher
}

// Relay moves committed outbox rows to Pub/Sub. Rows of one aggregate share
// an ordering key, so consumers see order.created before order.cancelled.
type Relay struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       topicSource
	rows         rowStore
	registry     resolver
	dlq          deadLetterStore
	metrics      *metrics.OutboxMetrics
	publisherFor func(topic string) publisher
	batchSize    int
	maxAttempts  int
	poll         time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	}

	r := &Relay{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		rows:         params.Rows,
		registry:     params.Registry,
		dlq:          params.DLQ,
		metrics:      params.Metrics,
		publisherFor: params.publisherFor,
		batchSize:    positiveOr(params.Outbox.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(params.Outbox.MaxAttempts, defaultMaxAttempts),
		poll:         defaultPoll,
	}
	if params.Outbox.PollIntervalMS > 0 {
		r.poll = time.Duration(params.Outbox.PollIntervalMS) * time.Millisecond
	}
	if r.publisherFor == nil {
		r.publisherFor = func(topic string) publisher {
			if p := params.PubSub.Publisher(topic); p != nil {
				return topicPublisher{p: p}
			}
			return nil
		}
	}
	return r, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// the next one; an empty batch waits one poll interval; a failed batch backs
// off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	wait := r.poll
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox.relay_stopped")
			return err
		}

		handled, err := r.drainOnce(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.batch_failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case handled >= r.batchSize:
			wait = r.poll
			continue
		default:
			wait = r.poll
		}
		if err := sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
}

type dispatch struct {
	row      models.OutboxEvent
	resolved *registry.ResolvedEvent
	pub      publisher
	pending  publishResult
	err      error
}

func (d *dispatch) topic() string {
	if d.resolved == nil {
		return ""
	}
	return d.resolved.Descriptor.Topic
}

// drainOnce publishes one batch inside the row-locking transaction and
// reports how many rows it settled.
func (r *Relay) drainOnce(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.rows.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		publishCtx, cancel := context.WithTimeout(ctx, batchPublishWait)
		defer cancel()

		batch := make([]dispatch, len(rows))
		for i, row := range rows {
			batch[i] = r.send(publishCtx, row)
		}
		for i := range batch {
			if err := r.settle(ctx, publishCtx, tx, &batch[i]); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

// send resolves the row and hands it to the topic publisher without waiting
// for the server ack.
func (r *Relay) send(ctx context.Context, row models.OutboxEvent) dispatch {
	d := dispatch{row: row}
	resolved, err := r.registry.Resolve(row)
	if err != nil {
		d.err = err
		return d
	}
	d.resolved = resolved
	d.pub = r.publisherFor(resolved.Descriptor.Topic)
	if d.pub == nil {
		d.err = registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", resolved.Descriptor.Topic))
		return d
	}
	d.pending = d.pub.Publish(ctx, &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	return d
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

func (r *Relay) classify(row models.OutboxEvent, err error) (outcome, enums.OutboxDLQErrorReason) {
	if err == nil {
		return outcomePublished, ""
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return outcomeDead, enums.OutboxDLQReasonNonRetryable
	}
	if row.AttemptCount+1 >= r.maxAttempts {
		return outcomeDead, enums.OutboxDLQReasonMaxAttempts
	}
	return outcomeRetry, ""
}

func (r *Relay) settle(ctx, publishCtx context.Context, tx *gorm.DB, d *dispatch) error {
	err := d.err
	if err == nil {
		if d.pending == nil {
			err = registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %q", d.topic()))
		} else {
			_, err = d.pending.Get(publishCtx)
		}
	}

	row := d.row
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
		"topic":         d.topic(),
	})

	result, reason := r.classify(row, err)
	if result != outcomePublished && d.pub != nil {
		// A failed publish pauses the ordering key until resumed.
		d.pub.ResumePublish(row.AggregateID.String())
	}

	switch result {
	case outcomePublished:
		if markErr := r.rows.MarkPublishedTx(tx, row.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, markErr)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Debug(logCtx, "outbox.published")
	case outcomeRetry:
		if markErr := r.rows.MarkFailedTx(tx, row.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
		}
		r.metrics.IncFailed(string(row.EventType))
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox.publish_retry")
	case outcomeDead:
		if reason == enums.OutboxDLQReasonMaxAttempts {
			err = fmt.Errorf("max publish attempts reached: %w", err)
		}
		return r.deadLetter(logCtx, tx, row, reason, err)
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	entry := row.DeadLetter(reason, cause, time.Now())
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.rows.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	r.metrics.IncDeadLettered(string(reason))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox.dead_lettered")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitter adds up to a quarter of d so replicas do not poll in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}

type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.p.Publish(ctx, msg)
}

func (t topicPublisher) ResumePublish(key string) {
	t.p.ResumePublish(key)
}

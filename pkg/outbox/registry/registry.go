// Package registry maps outbox event types to their Pub/Sub topic and typed
// payload, and decides which bad rows are worth retrying.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/outbox/payloads"
)

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is a row that passed every check and is ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every
// attempt; the relay dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func fatal(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// route builds a descriptor whose payload decodes into T and must pass
// struct validation.
func route[T any](evt enums.OutboxEventType, agg enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     evt,
		AggregateType: agg,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			if err := payloadValidator.Struct(payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry sends order events to the orders topic and listing
// events to the catalog topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var errs []error
	if cfg.OrdersTopic == "" {
		errs = append(errs, errors.New("orders topic is required"))
	}
	if cfg.CatalogTopic == "" {
		errs = append(errs, errors.New("catalog topic is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	reg := &EventRegistry{routes: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.OrderCancelledEvent](enums.EventOrderCancelled, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.ProductCreatedEvent](enums.EventProductCreated, enums.AggregateProduct, cfg.CatalogTopic),
		route[payloads.ProductDeletedEvent](enums.EventProductDeleted, enums.AggregateProduct, cfg.CatalogTopic),
	} {
		reg.routes[d.EventType] = d
	}
	return reg, nil
}

// Topics lists the distinct topics, sorted, for startup existence checks.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, d := range r.routes {
		if !slices.Contains(topics, d.Topic) {
			topics = append(topics, d.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks the row against its route and decodes the payload. Every
// failure here is non-retryable.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, fatal("unsupported event type %s", row.EventType)
	case d.AggregateType != row.AggregateType:
		return nil, fatal("aggregate mismatch: expected %s got %s", d.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, fatal("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if string(env.Data) == "null" {
		return nil, fatal("payload missing for %s", row.EventType)
	}
	payload, err := d.decode(env.Data)
	if err != nil {
		return nil, fatal("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}

// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package eventbridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/medibook/internal/dispatch"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
	"github.com/tomtom215/medibook/internal/validation"
)

// Event sources recorded in metrics.
const (
	SourceNATS = "nats"
	SourceHTTP = "http"
)

// Outcomes recorded in metrics.
const (
	ResultDelivered = "delivered"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// CorrelationIDKey is the message metadata key carrying the producer's
// correlation id. The message UUID is used when it is absent.
const CorrelationIDKey = "correlation_id"

var (
	// ErrInvalidEvent marks a payload that can never be processed.
	ErrInvalidEvent = errors.New("invalid appointment event")

	// ErrNotSubscribed is reported by Ready while no subscription is active.
	ErrNotSubscribed = errors.New("event bridge is not subscribed")

	errSubscriptionClosed = errors.New("subscription closed")
)

// Notifier is the part of the appointment dispatcher the bridge needs.
type Notifier interface {
	NotifyEvent(ctx context.Context, ev dispatch.Event) (dispatch.Delivery, error)
}

// Decode parses and validates an appointment event payload. Errors wrap
// ErrInvalidEvent; validation failures also wrap the
// *validation.RequestValidationError with per-field details.
func Decode(payload []byte) (dispatch.Event, error) {
	var ev dispatch.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if verr := validation.ValidateStruct(&ev); verr != nil {
		return ev, fmt.Errorf("%w: %w", ErrInvalidEvent, verr)
	}
	return ev, nil
}

// Stats holds runtime counters.
type Stats struct {
	Received  int64 `json:"received"`
	Delivered int64 `json:"delivered"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

// Bridge consumes appointment events from a watermill subscriber and hands
// them to the appointment notifier. It implements suture.Service.
//
// Undecodable or invalid events are acked and dropped since redelivery
// cannot fix them. Notifier failures are nacked for redelivery.
type Bridge struct {
	subscriber message.Subscriber
	topic      string
	notifier   Notifier
	logger     watermill.LoggerAdapter

	subscribed atomic.Bool
	received  atomic.Int64
	delivered atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// New creates a bridge reading topic from subscriber.
func New(subscriber message.Subscriber, topic string, notifier Notifier, logger watermill.LoggerAdapter) *Bridge {
	if logger == nil {
		logger = logging.NewWatermillAdapter("eventbridge")
	}
	return &Bridge{
		subscriber: subscriber,
		topic:      topic,
		notifier:   notifier,
		logger:     logger.With(watermill.LogFields{"topic": topic}),
	}
}

// Serve subscribes and processes messages until ctx is canceled.
func (b *Bridge) Serve(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.topic, err)
	}
	b.subscribed.Store(true)
	defer b.subscribed.Store(false)
	b.logger.Info("Event bridge subscribed", nil)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errSubscriptionClosed
			}
			b.process(ctx, msg)
		}
	}
}

// String names the service for the supervisor.
func (b *Bridge) String() string {
	return "event-bridge"
}

// Ready reports whether Serve holds an active subscription.
func (b *Bridge) Ready(_ context.Context) error {
	if !b.subscribed.Load() {
		return ErrNotSubscribed
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:  b.received.Load(),
		Delivered: b.delivered.Load(),
		Rejected:  b.rejected.Load(),
		Failed:    b.failed.Load(),
	}
}

func (b *Bridge) process(ctx context.Context, msg *message.Message) {
	if err := b.Handle(ctx, msg); err != nil {
		b.logger.Error("Appointment event processing failed", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// Handle processes one message. It returns an error only when the message
// should be redelivered.
func (b *Bridge) Handle(ctx context.Context, msg *message.Message) error {
	b.received.Add(1)

	correlationID := msg.Metadata.Get(CorrelationIDKey)
	if correlationID == "" {
		correlationID = msg.UUID
	}
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)

	ev, err := Decode(msg.Payload)
	if err != nil {
		b.reject(ctx, msg, err)
		return nil
	}

	_, err = b.notifier.NotifyEvent(ctx, ev)
	switch {
	case errors.Is(err, dispatch.ErrUnknownAction):
		b.reject(ctx, msg, err)
		return nil
	case err != nil:
		b.failed.Add(1)
		metrics.RecordEvent(SourceNATS, ResultFailed)
		return err
	}

	b.delivered.Add(1)
	metrics.RecordEvent(SourceNATS, ResultDelivered)
	return nil
}

func (b *Bridge) reject(ctx context.Context, msg *message.Message, err error) {
	b.rejected.Add(1)
	metrics.RecordEvent(SourceNATS, ResultRejected)
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("message_uuid", msg.UUID).
		Msg("dropping invalid appointment event")
}

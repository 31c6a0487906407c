package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/telemetry"
)

const feedPrefetch = 16

// FeedMessage is the JSON payload producers publish to the notifications queue.
type FeedMessage struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Kind       string    `json:"kind,omitempty"`
	TargetLink string    `json:"targetLink,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// DecodeFeedMessage parses a queue payload into a Record. Every decoding
// failure, including bad timestamps, wraps ErrMalformed.
func DecodeFeedMessage(body []byte) (Record, error) {
	var msg FeedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return Record{
		ID:         msg.ID,
		UserID:     msg.UserID,
		Title:      msg.Title,
		Message:    msg.Message,
		Kind:       Kind(msg.Kind),
		TargetLink: msg.TargetLink,
		CreatedAt:  msg.CreatedAt,
	}, nil
}

// Feed consumes notifications published by other services over AMQP.
type Feed struct {
	Svc   *Service
	URL   string
	Queue string
}

// Run consumes until ctx ends or the broker closes the delivery channel.
func (f *Feed) Run(ctx context.Context) error {
	conn, err := amqp.Dial(f.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(f.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp declare queue=%s: %w", f.Queue, err)
	}
	if err := ch.Qos(feedPrefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "dashboard-notifications", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume queue=%s: %w", q.Name, err)
	}

	telemetry.Info("notifications.feed.started", map[string]any{"queue": q.Name})
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			f.Handle(ctx, d)
		}
	}
}

// Serve runs the consumer until ctx ends, reconnecting retry after every
// broker failure.
func (f *Feed) Serve(ctx context.Context, retry time.Duration) {
	for {
		err := f.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		telemetry.Warn("notifications.feed.stopped", map[string]any{"err": err, "retry_in": retry.String()})
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

// Handle processes one delivery. Malformed payloads are dropped, transient
// failures are requeued, and redeliveries of a known id are acknowledged.
func (f *Feed) Handle(ctx context.Context, d amqp.Delivery) {
	rec, err := DecodeFeedMessage(d.Body)
	if err == nil {
		_, err = f.Svc.Publish(ctx, rec)
	}
	switch {
	case err == nil, errors.Is(err, ErrDuplicateID):
		_ = d.Ack(false)
		metrics.IncFeedAcked()
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformed):
		telemetry.Error("notifications.feed.rejected", map[string]any{
			"err":          err,
			"delivery_tag": d.DeliveryTag,
		})
		_ = d.Nack(false, false)
		metrics.IncFeedNacked()
	default:
		telemetry.Warn("notifications.feed.requeue", map[string]any{
			"err":          err,
			"delivery_tag": d.DeliveryTag,
		})
		_ = d.Nack(false, true)
		metrics.IncFeedNacked()
	}
}

package broker

import (
	"context"
	"fmt"
	"time"

	"openfeed/internal/events"
	"openfeed/internal/metrics"
	openfeed_errors "openfeed/pkg/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher serializes domain events and appends them to the routing
// key's stream. Publishing is fire-and-forget from the caller's
// perspective: request handlers log a failure and move on, because the
// primary write has already committed by the time they publish.
type Publisher struct {
	broker *Broker
}

func NewPublisher(b *Broker) *Publisher {
	return &Publisher{broker: b}
}

// Publish wraps payload in a tagged envelope and appends it to the
// stream for routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	data, err := events.Encode(uuid.NewString(), routingKey, time.Now(), payload)
	if err != nil {
		return fmt.Errorf("%w: %v", openfeed_errors.ErrPublish, err)
	}

	err = p.broker.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.broker.stream(routingKey),
		MaxLen: p.broker.cfg.StreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"event": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", openfeed_errors.ErrPublish, err)
	}

	metrics.EventsPublished.WithLabelValues(routingKey).Inc()
	return nil
}

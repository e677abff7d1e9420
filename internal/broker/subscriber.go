package broker

import (
	"context"
	"errors"
	"strings"
	"time"

	"openfeed/internal/events"
	"openfeed/internal/metrics"
	"openfeed/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Handler applies one decoded event to the service's local state. It
// must be idempotent: the broker delivers at least once, so the same
// event can arrive again after a failure or a reclaim.
type Handler func(ctx context.Context, env events.Envelope) error

// Subscriber consumes routing keys for one service. Each Subscribe call
// creates (or joins) a consumer group named after the service, so every
// service sees every event while instances of one service share the
// load. A message is acknowledged only after its handler returns nil;
// failed deliveries stay pending and are retried by the reclaim loop
// until MaxDeliveries, then moved to the dead-letter stream.
type Subscriber struct {
	broker   *Broker
	group    string
	consumer string
	log      *logger.Logger
}

// NewSubscriber creates a subscriber for the named service group.
func NewSubscriber(b *Broker, group string, log *logger.Logger) *Subscriber {
	return &Subscriber{
		broker:   b,
		group:    group,
		consumer: group + "-" + uuid.NewString(),
		log:      log,
	}
}

// Subscribe binds handler to routingKey and starts the delivery and
// reclaim loops. Loops for different routing keys are independent: a
// hung handler blocks its own stream only.
func (s *Subscriber) Subscribe(ctx context.Context, routingKey string, handler Handler) error {
	stream := s.broker.stream(routingKey)

	// Start at 0 so a group created after events were published still
	// catches up on the stream's history.
	err := s.broker.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	go s.consumeLoop(ctx, stream, routingKey, handler)
	go s.reclaimLoop(ctx, stream, routingKey, handler)
	return nil
}

func (s *Subscriber) consumeLoop(ctx context.Context, stream, routingKey string, handler Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := s.broker.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{stream, ">"},
			Count:    16,
			Block:    s.broker.cfg.ReadBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.log.Errorf("read group %s on %s: %v", s.group, stream, err)
			continue
		}

		for _, str := range streams {
			for _, msg := range str.Messages {
				s.handleMessage(ctx, stream, routingKey, msg, handler)
			}
		}
	}
}

// handleMessage runs the handler and acknowledges on success. Events
// that fail to decode are dead-lettered immediately: redelivery cannot
// fix a malformed payload.
func (s *Subscriber) handleMessage(ctx context.Context, stream, routingKey string, msg redis.XMessage, handler Handler) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		s.log.Errorf("message %s on %s has no event field", msg.ID, stream)
		s.deadLetter(ctx, stream, routingKey, msg)
		return
	}

	env, err := events.Decode([]byte(raw))
	if err != nil {
		s.log.Errorf("message %s on %s: %v", msg.ID, stream, err)
		s.deadLetter(ctx, stream, routingKey, msg)
		return
	}

	if err := handler(ctx, env); err != nil {
		// Leave the message pending; the reclaim loop retries it.
		s.log.Errorf("handler for %s failed on message %s: %v", routingKey, msg.ID, err)
		metrics.EventsFailed.WithLabelValues(s.group, routingKey).Inc()
		return
	}

	if err := s.broker.client.XAck(ctx, stream, s.group, msg.ID).Err(); err != nil {
		s.log.Errorf("ack %s on %s: %v", msg.ID, stream, err)
		return
	}
	metrics.EventsConsumed.WithLabelValues(s.group, routingKey).Inc()
}

// reclaimLoop retries deliveries that have been pending longer than
// ReclaimMinIdle. A message seen MaxDeliveries times is given up on and
// moved to the dead-letter stream.
func (s *Subscriber) reclaimLoop(ctx context.Context, stream, routingKey string, handler Handler) {
	ticker := time.NewTicker(s.broker.cfg.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reclaimOnce(ctx, stream, routingKey, handler)
		}
	}
}

func (s *Subscriber) reclaimOnce(ctx context.Context, stream, routingKey string, handler Handler) {
	pending, err := s.broker.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  s.group,
		Idle:   s.broker.cfg.ReclaimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  64,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorf("pending scan on %s: %v", stream, err)
		}
		return
	}

	for _, p := range pending {
		claimed, err := s.broker.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.broker.cfg.ReclaimMinIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		if int(p.RetryCount) >= s.broker.cfg.MaxDeliveries {
			s.log.Errorf("message %s on %s exhausted %d deliveries, dead-lettering", p.ID, stream, p.RetryCount)
			s.deadLetter(ctx, stream, routingKey, claimed[0])
			continue
		}

		s.handleMessage(ctx, stream, routingKey, claimed[0], handler)
	}
}

func (s *Subscriber) deadLetter(ctx context.Context, stream, routingKey string, msg redis.XMessage) {
	values := map[string]interface{}{
		"stream": stream,
		"group":  s.group,
	}
	if raw, ok := msg.Values["event"]; ok {
		values["event"] = raw
	}

	if err := s.broker.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.broker.DeadLetterStream(),
		MaxLen: s.broker.cfg.StreamMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		s.log.Errorf("dead-letter %s from %s: %v", msg.ID, stream, err)
		return
	}

	_ = s.broker.client.XAck(ctx, stream, s.group, msg.ID).Err()
	metrics.EventsDeadLettered.WithLabelValues(s.group, routingKey).Inc()
}

// Package broker is the asynchronous event bus between services, built
// on Redis Streams. Each routing key gets its own stream under a
// well-known namespace; consumers read through per-service consumer
// groups so delivery is at-least-once and survives consumer downtime.
package broker

import (
	"context"
	"fmt"
	"time"

	"openfeed/internal/config"
	openfeed_errors "openfeed/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Config tunes the broker for one process.
type Config struct {
	// Namespace is the stream prefix shared by every service in a
	// deployment. Routing keys are appended: feed.events.post.created.
	Namespace string
	// MaxDeliveries bounds redelivery of a failing message before it is
	// moved to the dead-letter stream.
	MaxDeliveries int
	// ReclaimMinIdle is how long a delivery must sit unacknowledged
	// before the reclaim loop retries it.
	ReclaimMinIdle time.Duration
	// ReclaimInterval is how often the reclaim loop scans for stuck
	// deliveries.
	ReclaimInterval time.Duration
	// ReadBlock is the XREADGROUP block duration. Negative disables
	// blocking (used by tests).
	ReadBlock time.Duration
	// StreamMaxLen caps each stream with an approximate trim.
	StreamMaxLen int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(namespace string) Config {
	return Config{
		Namespace:       namespace,
		MaxDeliveries:   5,
		ReclaimMinIdle:  30 * time.Second,
		ReclaimInterval: 10 * time.Second,
		ReadBlock:       5 * time.Second,
		StreamMaxLen:    100000,
	}
}

// ConfigFrom maps the process configuration onto broker defaults,
// keeping defaults for anything unset.
func ConfigFrom(c config.BrokerConfig) Config {
	cfg := DefaultConfig(c.Namespace)
	if c.MaxDeliveries > 0 {
		cfg.MaxDeliveries = c.MaxDeliveries
	}
	if c.ReclaimMinIdle > 0 {
		cfg.ReclaimMinIdle = c.ReclaimMinIdle
	}
	if c.StreamMaxLen > 0 {
		cfg.StreamMaxLen = c.StreamMaxLen
	}
	return cfg
}

// Broker owns the process's single broker connection. It is constructed
// once at startup and closed at shutdown; there is no lazy init and no
// implicit re-creation mid-process.
type Broker struct {
	client *redis.Client
	cfg    Config
}

// New verifies connectivity with a single ping. A service that depends
// on messaging treats a failure here as fatal and must not accept
// traffic; retry policy, if any, belongs to the caller.
func New(ctx context.Context, client *redis.Client, cfg Config) (*Broker, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "feed.events"
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", openfeed_errors.ErrBrokerUnavailable, err)
	}
	return &Broker{client: client, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (b *Broker) Close() error {
	return b.client.Close()
}

// Client exposes the underlying connection for components that share it
// (rate limiting, cache) in single-binary deployments.
func (b *Broker) Client() *redis.Client {
	return b.client
}

func (b *Broker) stream(routingKey string) string {
	return b.cfg.Namespace + "." + routingKey
}

// DeadLetterStream is where messages land after exhausting deliveries.
func (b *Broker) DeadLetterStream() string {
	return b.cfg.Namespace + ".dead"
}

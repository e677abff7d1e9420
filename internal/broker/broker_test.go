package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"openfeed/internal/events"
	"openfeed/pkg/logger"
	openfeed_errors "openfeed/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Namespace:       "feed.events",
		MaxDeliveries:   2,
		ReclaimMinIdle:  0,
		ReclaimInterval: 10 * time.Millisecond,
		ReadBlock:       -1,
		StreamMaxLen:    1000,
	}
}

func newTestBroker(t *testing.T) (*Broker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b, err := New(context.Background(), client, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestNewFailsWhenBrokerUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	_, err := New(context.Background(), client, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, openfeed_errors.ErrBrokerUnavailable)
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisher(b)
	sub := NewSubscriber(b, "search", logger.New(logger.DevelopmentMode))

	var mu sync.Mutex
	var got []events.PostCreated
	err := sub.Subscribe(ctx, events.EventTypePostCreated, func(ctx context.Context, env events.Envelope) error {
		p, err := env.PostCreated()
		if err != nil {
			return err
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	want := events.PostCreated{
		PostID:    "p1",
		UserID:    "u1",
		Content:   "hi",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(ctx, events.EventTypePostCreated, want))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, want, got[0])
	mu.Unlock()
}

func TestEventsSurviveConsumerDowntime(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisher(b)
	// Published before any subscriber exists.
	require.NoError(t, pub.Publish(ctx, events.EventTypePostDeleted, events.PostDeleted{PostID: "p1", UserID: "u1"}))

	var mu sync.Mutex
	var count int
	sub := NewSubscriber(b, "media", logger.New(logger.DevelopmentMode))
	err := sub.Subscribe(ctx, events.EventTypePostDeleted, func(ctx context.Context, env events.Envelope) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFailedHandlerIsRedelivered(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisher(b)
	sub := NewSubscriber(b, "search", logger.New(logger.DevelopmentMode))

	var mu sync.Mutex
	attempts := 0
	err := sub.Subscribe(ctx, events.EventTypePostCreated, func(ctx context.Context, env events.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, events.EventTypePostCreated, events.PostCreated{PostID: "p1", UserID: "u1"}))

	// First delivery fails, the reclaim loop retries and succeeds.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestExhaustedDeliveriesAreDeadLettered(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisher(b)
	sub := NewSubscriber(b, "search", logger.New(logger.DevelopmentMode))

	err := sub.Subscribe(ctx, events.EventTypePostCreated, func(ctx context.Context, env events.Envelope) error {
		return errors.New("permanent failure")
	})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, events.EventTypePostCreated, events.PostCreated{PostID: "p1", UserID: "u1"}))

	require.Eventually(t, func() bool {
		return b.Client().XLen(ctx, b.DeadLetterStream()).Val() >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestMalformedPayloadGoesStraightToDeadLetter(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(b, "search", logger.New(logger.DevelopmentMode))
	handlerCalled := false
	err := sub.Subscribe(ctx, events.EventTypePostCreated, func(ctx context.Context, env events.Envelope) error {
		handlerCalled = true
		return nil
	})
	require.NoError(t, err)

	// Hand-crafted garbage on the wire, bypassing the publisher.
	stream := b.stream(events.EventTypePostCreated)
	require.NoError(t, b.Client().XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"event": "not json"},
	}).Err())

	require.Eventually(t, func() bool {
		return b.Client().XLen(ctx, b.DeadLetterStream()).Val() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, handlerCalled)
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisher(b)
	sub := NewSubscriber(b, "search", logger.New(logger.DevelopmentMode))

	block := make(chan struct{})
	var mu sync.Mutex
	var deletedSeen bool

	require.NoError(t, sub.Subscribe(ctx, events.EventTypePostCreated, func(ctx context.Context, env events.Envelope) error {
		<-block // hung handler
		return nil
	}))
	require.NoError(t, sub.Subscribe(ctx, events.EventTypePostDeleted, func(ctx context.Context, env events.Envelope) error {
		mu.Lock()
		deletedSeen = true
		mu.Unlock()
		return nil
	}))

	require.NoError(t, pub.Publish(ctx, events.EventTypePostCreated, events.PostCreated{PostID: "p1", UserID: "u1"}))
	require.NoError(t, pub.Publish(ctx, events.EventTypePostDeleted, events.PostDeleted{PostID: "p2", UserID: "u1"}))

	// The hung post.created handler must not block post.deleted delivery.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deletedSeen
	}, 2*time.Second, 5*time.Millisecond)
	close(block)
}

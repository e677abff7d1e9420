// Package metrics exposes Prometheus instrumentation shared by the
// broker and cache layers. Every service mounts /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_events_published_total",
		Help: "Events published to the broker, by routing key.",
	}, []string{"routing_key"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_events_consumed_total",
		Help: "Events acknowledged after successful handling, by group and routing key.",
	}, []string{"group", "routing_key"})

	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_events_failed_total",
		Help: "Handler failures leaving the message pending for redelivery.",
	}, []string{"group", "routing_key"})

	EventsDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_events_dead_lettered_total",
		Help: "Events moved to the dead-letter stream after exhausting deliveries.",
	}, []string{"group", "routing_key"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_cache_hits_total",
		Help: "Cache hits by key prefix.",
	}, []string{"prefix"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openfeed_cache_misses_total",
		Help: "Cache misses by key prefix.",
	}, []string{"prefix"})
)

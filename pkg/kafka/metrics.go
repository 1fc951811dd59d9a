package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_published_total",
		Help: "Kafka messages published, by topic and result.",
	}, []string{"topic", "result"})

	messagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_total",
		Help: "Kafka messages consumed, by topic and outcome (processed, failed, malformed).",
	}, []string{"topic", "outcome"})

	duplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_duplicate_events_total",
		Help: "Events skipped because their ID was already processed.",
	}, []string{"event_type"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consumer_handler_duration_seconds",
		Help:    "Time spent in the message handler, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ingestBuckets covers document ingestion, which can take minutes for
// large PDFs.
var ingestBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600}

// Metrics holds the application's Prometheus instruments. Each Metrics
// value carries its own registry so tests stay isolated.
type Metrics struct {
	registry *prometheus.Registry

	RepliesTotal  *prometheus.CounterVec
	ReplyDuration prometheus.Histogram

	DocumentsIngestedTotal *prometheus.CounterVec
	IngestDuration         prometheus.Histogram

	QueueTasksQueued  prometheus.Gauge
	QueueTasksRunning prometheus.Gauge

	TelegramMessagesSentTotal     prometheus.Counter
	TelegramMessagesReceivedTotal prometheus.Counter
	TelegramErrorsTotal           prometheus.Counter
}

// NewMetrics creates a registry and registers all instruments on it.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RepliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replies_total",
			Help: "Total number of replies produced",
		}, []string{"status"}),
		ReplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reply_duration_seconds",
			Help:    "Time from receiving a message to sending the reply",
			Buckets: prometheus.DefBuckets,
		}),

		DocumentsIngestedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Total number of document ingestions",
		}, []string{"status"}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Time spent ingesting a document",
			Buckets: ingestBuckets,
		}),

		QueueTasksQueued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queue_tasks_queued",
			Help: "Number of tasks waiting across all user lanes",
		}),
		QueueTasksRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queue_tasks_running",
			Help: "Number of tasks currently running across all user lanes",
		}),

		TelegramMessagesSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_messages_sent_total",
			Help: "Total number of Telegram messages sent",
		}),
		TelegramMessagesReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_messages_received_total",
			Help: "Total number of Telegram messages received",
		}),
		TelegramErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_errors_total",
			Help: "Total number of Telegram send errors",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

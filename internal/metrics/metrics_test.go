package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersEverything(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())

	// Counter vecs only surface once a label combination is touched.
	m.RepliesTotal.WithLabelValues("ok").Inc()
	m.DocumentsIngestedTotal.WithLabelValues("ok").Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"replies_total",
		"reply_duration_seconds",
		"documents_ingested_total",
		"ingest_duration_seconds",
		"queue_tasks_queued",
		"queue_tasks_running",
		"telegram_messages_sent_total",
		"telegram_messages_received_total",
		"telegram_errors_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
	assert.Len(t, names, 9)
}

func TestHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.RepliesTotal.WithLabelValues("ok").Inc()
	m.ReplyDuration.Observe(1.0)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "replies_total")
	assert.Contains(t, body, "reply_duration_seconds")
	assert.Contains(t, body, "queue_tasks_queued")
}

func TestReplyStatusLabels(t *testing.T) {
	m := NewMetrics()

	m.RepliesTotal.WithLabelValues("ok").Inc()
	m.RepliesTotal.WithLabelValues("ok").Inc()
	m.RepliesTotal.WithLabelValues("error").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RepliesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepliesTotal.WithLabelValues("error")))
}

func TestQueueGauges(t *testing.T) {
	m := NewMetrics()

	m.QueueTasksQueued.Set(3)
	m.QueueTasksRunning.Set(1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueTasksQueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueTasksRunning))
}

func TestRegistriesAreIsolated(t *testing.T) {
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.TelegramMessagesSentTotal.Inc()
	m1.TelegramMessagesSentTotal.Inc()
	m2.TelegramMessagesSentTotal.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m1.TelegramMessagesSentTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m2.TelegramMessagesSentTotal))
}

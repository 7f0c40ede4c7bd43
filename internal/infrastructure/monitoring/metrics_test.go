package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnadon/producer-consumer/internal/queue"
)

func TestObserverRecordsQueueEvents(t *testing.T) {
	m := NewMetrics()

	m.OnClaim(0, queue.ClaimAcquired)
	m.OnClaim(1, queue.ClaimBusy)
	m.OnClaim(1, queue.ClaimBusy)
	m.OnClaim(2, queue.ClaimFull)
	m.OnInsert(0, 3)
	m.OnInsert(0, 4)
	m.OnPop(0, 3, 2*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimAttempts.WithLabelValues("acquired")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClaimAttempts.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimAttempts.WithLabelValues("full")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueInserts.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueuePops.WithLabelValues("0")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("0")))
}

func TestTaskCounters(t *testing.T) {
	m := NewMetrics()

	m.SetProducersActive(4)
	m.RecordUnitRead("line")
	m.RecordTokens(5)
	m.RecordDiscarded()
	m.RecordTaskFailure("consumer")

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ProducersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnitsRead.WithLabelValues("line")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TokensEmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnitsDiscarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskFailures.WithLabelValues("consumer")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OnClaim(0, queue.ClaimBusy)
		m.OnInsert(0, 1)
		m.OnPop(0, 0, time.Millisecond)
		m.SetProducersActive(1)
		m.RecordUnitRead("byte")
		m.RecordTokens(1)
		m.RecordDiscarded()
		m.RecordTaskFailure("producer")
		NewTimer(m, "producer").Stop("success")
	})
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordTokens(3)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TokensEmitted))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.OnInsert(1, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tokenizer_queue_inserts_total{queue="1"} 1`), body)
	assert.True(t, strings.Contains(body, "tokenizer_uptime_seconds"))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()

	timer := NewTimer(m, "consumer")
	d := timer.Stop("success")

	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TaskDuration))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

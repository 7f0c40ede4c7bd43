package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pnadon/producer-consumer/internal/queue"
)

// Metrics holds all Prometheus metrics. Every method is safe on a nil
// receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Queue metrics
	QueueInserts  *prometheus.CounterVec
	QueuePops     *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec
	ClaimAttempts *prometheus.CounterVec
	ConsumerWait  *prometheus.HistogramVec

	// Task metrics
	ProducersActive prometheus.Gauge
	UnitsRead       *prometheus.CounterVec
	TokensEmitted   prometheus.Counter
	UnitsDiscarded  prometheus.Counter
	TaskFailures    *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	startTime time.Time
}

// NewMetrics creates a collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		QueueInserts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_queue_inserts_total",
				Help: "Units inserted per queue",
			},
			[]string{"queue"},
		),
		QueuePops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_queue_pops_total",
				Help: "Units popped per queue",
			},
			[]string{"queue"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenizer_queue_depth",
				Help: "Units currently held per queue",
			},
			[]string{"queue"},
		),
		ClaimAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_claim_attempts_total",
				Help: "Queue claim attempts by outcome",
			},
			[]string{"outcome"},
		),
		ConsumerWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenizer_consumer_wait_seconds",
				Help:    "Time a consumer spent blocked waiting for a unit",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"queue"},
		),

		ProducersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenizer_producers_active",
				Help: "Producers that have not finished",
			},
		),
		UnitsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_units_read_total",
				Help: "Units read from sources",
			},
			[]string{"mode"},
		),
		TokensEmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenizer_tokens_emitted_total",
				Help: "Token records written to sinks",
			},
		),
		UnitsDiscarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenizer_units_discarded_total",
				Help: "Units drained by a consumer whose sink failed",
			},
		),
		TaskFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_task_failures_total",
				Help: "Failed producer and consumer tasks",
			},
			[]string{"role"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenizer_task_duration_seconds",
				Help:    "Producer and consumer run time",
				Buckets: prometheus.ExponentialBuckets(.001, 4, 10),
			},
			[]string{"role", "status"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenizer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenizer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tokenizer_uptime_seconds",
			Help: "Seconds since the metrics were created",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry holding every metric
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OnClaim records one probe of the queue selection protocol
func (m *Metrics) OnClaim(_ int, outcome queue.ClaimOutcome) {
	if m == nil {
		return
	}
	m.ClaimAttempts.WithLabelValues(outcome.String()).Inc()
}

// OnInsert records an insert and the depth it left behind
func (m *Metrics) OnInsert(q int, depth int) {
	if m == nil {
		return
	}
	label := strconv.Itoa(q)
	m.QueueInserts.WithLabelValues(label).Inc()
	m.QueueDepth.WithLabelValues(label).Set(float64(depth))
}

// OnPop records a pop, the depth it left behind and how long the consumer
// waited for it
func (m *Metrics) OnPop(q int, depth int, wait time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(q)
	m.QueuePops.WithLabelValues(label).Inc()
	m.QueueDepth.WithLabelValues(label).Set(float64(depth))
	m.ConsumerWait.WithLabelValues(label).Observe(wait.Seconds())
}

// SetProducersActive sets the number of unfinished producers
func (m *Metrics) SetProducersActive(n int) {
	if m == nil {
		return
	}
	m.ProducersActive.Set(float64(n))
}

// RecordUnitRead counts one unit read in the given mode
func (m *Metrics) RecordUnitRead(mode string) {
	if m == nil {
		return
	}
	m.UnitsRead.WithLabelValues(mode).Inc()
}

// RecordTokens counts emitted token records
func (m *Metrics) RecordTokens(n int) {
	if m == nil {
		return
	}
	m.TokensEmitted.Add(float64(n))
}

// RecordDiscarded counts one unit drained without output
func (m *Metrics) RecordDiscarded() {
	if m == nil {
		return
	}
	m.UnitsDiscarded.Inc()
}

// RecordTaskFailure counts a failed task
func (m *Metrics) RecordTaskFailure(role string) {
	if m == nil {
		return
	}
	m.TaskFailures.WithLabelValues(role).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(c.Request.Method, path, status, time.Since(start))
	}
}

// Timer measures how long a task ran
type Timer struct {
	start   time.Time
	metrics *Metrics
	role    string
}

// NewTimer starts a timer for a producer or consumer
func NewTimer(metrics *Metrics, role string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		role:    role,
	}
}

// Stop records the elapsed time under status and returns it
func (t *Timer) Stop(status string) time.Duration {
	duration := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.TaskDuration.WithLabelValues(t.role, status).Observe(duration.Seconds())
	}
	return duration
}

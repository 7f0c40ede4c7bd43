package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/pipeline"
)

type fakeStats struct {
	stats pipeline.Stats
}

func (f fakeStats) Stats() pipeline.Stats {
	return f.stats
}

func newTestServer(metrics *monitoring.Metrics) *Server {
	stats := fakeStats{pipeline.Stats{
		RunID:              "run_test",
		Running:            true,
		ProducersTotal:     2,
		ProducersRemaining: 1,
		Queues:             []pipeline.QueueStats{{Index: 0, Depth: 3, Capacity: 4, Claimed: true}},
	}}
	return New(stats, metrics, nil, false)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(nil).Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	rec := get(t, newTestServer(nil).Handler(), "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pipeline.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run_test", got.RunID)
	assert.Equal(t, 1, got.ProducersRemaining)
	require.Len(t, got.Queues, 1)
	assert.Equal(t, 3, got.Queues[0].Depth)
	assert.True(t, got.Queues[0].Claimed)
}

func TestMetricsRoute(t *testing.T) {
	metrics := monitoring.NewMetrics()
	h := newTestServer(metrics).Handler()

	get(t, h, "/healthz")
	rec := get(t, h, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tokenizer_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestMetricsRouteAbsentWithoutMetrics(t *testing.T) {
	rec := get(t, newTestServer(nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := newTestServer(monitoring.NewMetrics())
	require.NoError(t, s.Start("127.0.0.1:0"))
	assert.True(t, strings.HasPrefix(s.Addr(), "127.0.0.1:"))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestStartBadAddr(t *testing.T) {
	s := newTestServer(nil)
	assert.Error(t, s.Start("256.0.0.1:bad"))
	assert.Empty(t, s.Addr())
	assert.NoError(t, s.Shutdown(context.Background()))
}

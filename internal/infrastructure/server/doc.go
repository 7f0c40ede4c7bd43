// Package server exposes a running tokenizer over HTTP.
//
// Routes:
//   - GET /metrics: Prometheus exposition of the run's private registry
//   - GET /healthz: liveness
//   - GET /stats: queue depths, claim flags and task states as JSON
//
// The server is optional and only started when an address is configured.
package server

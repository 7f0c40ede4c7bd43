/*
Package monitoring collects Prometheus metrics for a tokenizer run.

# Overview

Metrics live on a private registry rather than the global default, so
tests and repeated runs in one process never collide. Metrics implements
queue.Observer and is handed to the queue set directly; producers and
consumers record their own counters.

# Metrics

  - tokenizer_queue_inserts_total, tokenizer_queue_pops_total, tokenizer_queue_depth (per queue)
  - tokenizer_claim_attempts_total (acquired, busy, full)
  - tokenizer_consumer_wait_seconds
  - tokenizer_producers_active, tokenizer_units_read_total, tokenizer_tokens_emitted_total
  - tokenizer_units_discarded_total, tokenizer_task_failures_total, tokenizer_task_duration_seconds

# Usage

	metrics := monitoring.NewMetrics()
	set, _ := queue.NewSet[Unit](4, 256, queue.WithObserver(metrics))

	timer := monitoring.NewTimer(metrics, "producer")
	// ... run ...
	timer.Stop("success")

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring

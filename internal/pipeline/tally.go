package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/queue"
)

// tally counts queue events for the run report and forwards them to the
// metrics, which may be nil
type tally struct {
	inserted []atomic.Int64
	popped   []atomic.Int64
	busy     atomic.Int64
	full     atomic.Int64

	metrics *monitoring.Metrics
}

func newTally(queues int, metrics *monitoring.Metrics) *tally {
	return &tally{
		inserted: make([]atomic.Int64, queues),
		popped:   make([]atomic.Int64, queues),
		metrics:  metrics,
	}
}

func (t *tally) OnClaim(q int, outcome queue.ClaimOutcome) {
	switch outcome {
	case queue.ClaimBusy:
		t.busy.Add(1)
	case queue.ClaimFull:
		t.full.Add(1)
	}
	t.metrics.OnClaim(q, outcome)
}

func (t *tally) OnInsert(q int, depth int) {
	t.inserted[q].Add(1)
	t.metrics.OnInsert(q, depth)
}

func (t *tally) OnPop(q int, depth int, wait time.Duration) {
	t.popped[q].Add(1)
	t.metrics.OnPop(q, depth, wait)
}

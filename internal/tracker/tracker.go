// Package tracker counts producers that are still running so consumers can
// tell when no more data will ever arrive.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrUnderflow is the panic value when more producers finish than started
var ErrUnderflow = errors.New("job tracker decremented below zero")

// JobTracker is a countdown of active producers. The count never grows
// after New and reaches zero exactly once, at which point Done is closed.
type JobTracker struct {
	remaining atomic.Int64
	total     int
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a tracker for producerCount producers. A count of zero
// starts out done.
func New(producerCount int) (*JobTracker, error) {
	if producerCount < 0 {
		return nil, fmt.Errorf("producer count must be non-negative, got %d", producerCount)
	}

	t := &JobTracker{
		total: producerCount,
		done:  make(chan struct{}),
	}
	t.remaining.Store(int64(producerCount))
	if producerCount == 0 {
		t.finish()
	}
	return t, nil
}

// Decrement records that one producer has finished
func (t *JobTracker) Decrement() {
	n := t.remaining.Add(-1)
	switch {
	case n == 0:
		t.finish()
	case n < 0:
		panic(ErrUnderflow)
	}
}

// IsDone reports whether every producer has finished
func (t *JobTracker) IsDone() bool {
	return t.remaining.Load() <= 0
}

// Remaining returns the number of producers still running
func (t *JobTracker) Remaining() int {
	return int(t.remaining.Load())
}

// Total returns the producer count the tracker was created with
func (t *JobTracker) Total() int {
	return t.total
}

// Done returns a channel closed when the count reaches zero
func (t *JobTracker) Done() <-chan struct{} {
	return t.done
}

// Handle returns a release func for one producer. Calling it more than
// once decrements only once.
func (t *JobTracker) Handle() func() {
	var once sync.Once
	return func() {
		once.Do(t.Decrement)
	}
}

func (t *JobTracker) finish() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnadon/producer-consumer/internal/tracker"
)

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[ClaimOutcome]int
	inserts  map[int]int
	pops     map[int]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		outcomes: make(map[ClaimOutcome]int),
		inserts:  make(map[int]int),
		pops:     make(map[int]int),
	}
}

func (o *countingObserver) OnClaim(_ int, outcome ClaimOutcome) {
	o.mu.Lock()
	o.outcomes[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) OnInsert(queue int, _ int) {
	o.mu.Lock()
	o.inserts[queue]++
	o.mu.Unlock()
}

func (o *countingObserver) OnPop(queue int, _ int, _ time.Duration) {
	o.mu.Lock()
	o.pops[queue]++
	o.mu.Unlock()
}

func TestNewSetValidation(t *testing.T) {
	_, err := NewSet[int](0, 4)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = NewSet[int](2, 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	s, err := NewSet[int](3, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 5, s.Queue(2).Cap())
	assert.Equal(t, []int{0, 0, 0}, s.Sizes())
}

func TestClaimIsExclusive(t *testing.T) {
	s, err := NewSet[int](1, 1)
	require.NoError(t, err)

	const contenders = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Claim(0) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, s.Claimed(0))

	s.Release(0)
	assert.False(t, s.Claimed(0))
}

func TestReleaseUnclaimedPanics(t *testing.T) {
	s, err := NewSet[int](2, 1)
	require.NoError(t, err)

	assert.Panics(t, func() { s.Release(1) })
}

func TestInsertReleasesClaim(t *testing.T) {
	obs := newCountingObserver()
	s, err := NewSet[string](4, 2, WithSeed(7), WithObserver(obs))
	require.NoError(t, err)

	idx, err := s.Insert(context.Background(), "line")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 4)

	for i := 0; i < s.Len(); i++ {
		assert.False(t, s.Claimed(i), "queue %d left claimed", i)
	}
	assert.Equal(t, 1, s.Queue(idx).Size())
	assert.Equal(t, 1, obs.outcomes[ClaimAcquired])
	assert.Equal(t, 1, obs.inserts[idx])
}

func TestInsertSkipsFullQueues(t *testing.T) {
	obs := newCountingObserver()
	s, err := NewSet[int](2, 1, WithSeed(1), WithProbeLimit(64), WithObserver(obs))
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, s.Queue(0).TryInsert(100))

	for i := 0; i < 3; i++ {
		idx, err := s.Insert(ctx, i)
		if i == 0 {
			require.NoError(t, err)
			assert.Equal(t, 1, idx)
			continue
		}
		// both queues full now; insert must park, not drop
		ctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		_, err = s.Insert(ctx, i)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	assert.Equal(t, []int{1, 1}, s.Sizes())
	assert.Positive(t, obs.outcomes[ClaimFull])
}

func TestParkedProducerWakesOnPop(t *testing.T) {
	s, err := NewSet[int](2, 1, WithSeed(3), WithProbeLimit(64))
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, s.Queue(0).TryInsert(1))
	require.True(t, s.Queue(1).TryInsert(2))

	result := make(chan int, 1)
	go func() {
		idx, err := s.Insert(ctx, 3)
		if err == nil {
			result <- idx
		}
	}()

	select {
	case <-result:
		t.Fatal("insert should park while every queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok, err := s.PopWait(ctx, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	select {
	case idx := <-result:
		assert.Equal(t, 1, idx)
	case <-time.After(time.Second):
		t.Fatal("parked producer should wake after a pop")
	}
}

func TestInsertAtWaitsForClaimAndRoom(t *testing.T) {
	s, err := NewSet[int](2, 1)
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, s.Claim(1))

	done := make(chan error, 1)
	go func() {
		done <- s.InsertAt(ctx, 1, 42)
	}()

	select {
	case <-done:
		t.Fatal("InsertAt should wait for the claim")
	case <-time.After(30 * time.Millisecond):
	}

	s.Release(1)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("InsertAt should proceed after release")
	}
	assert.Equal(t, 42, s.Queue(1).Pop())
	assert.False(t, s.Claimed(1))
}

func TestInsertAtRejectsBadIndex(t *testing.T) {
	s, err := NewSet[int](2, 1)
	require.NoError(t, err)

	err = s.InsertAt(context.Background(), 2, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestInsertAtReleasesClaimOnCancel(t *testing.T) {
	s, err := NewSet[int](1, 1)
	require.NoError(t, err)
	require.True(t, s.Queue(0).TryInsert(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.InsertAt(ctx, 0, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Claimed(0))
}

type unit struct {
	source int
	seq    int
}

func TestManyProducersNoLossNoDuplication(t *testing.T) {
	const (
		producers = 6
		queues    = 3
		perSource = 400
	)
	obs := newCountingObserver()
	s, err := NewSet[unit](queues, 4, WithObserver(obs))
	require.NoError(t, err)
	jobs, err := tracker.New(producers)
	require.NoError(t, err)
	ctx := context.Background()

	var pwg sync.WaitGroup
	for p := 0; p < producers; p++ {
		pwg.Add(1)
		go func(p int) {
			defer pwg.Done()
			defer jobs.Handle()()
			for seq := 0; seq < perSource; seq++ {
				_, err := s.Insert(ctx, unit{source: p, seq: seq})
				assert.NoError(t, err)
			}
		}(p)
	}

	received := make([][]unit, queues)
	var cwg sync.WaitGroup
	for c := 0; c < queues; c++ {
		cwg.Add(1)
		go func(c int) {
			defer cwg.Done()
			for {
				u, ok, err := s.PopWait(ctx, c, jobs.Done())
				if !assert.NoError(t, err) || !ok {
					return
				}
				received[c] = append(received[c], u)
			}
		}(c)
	}

	pwg.Wait()
	cwg.Wait()

	seen := make(map[unit]bool)
	for c := 0; c < queues; c++ {
		// units from one source stay in order within one queue
		last := make(map[int]int)
		for _, u := range received[c] {
			assert.False(t, seen[u], "duplicate %+v", u)
			seen[u] = true
			if prev, ok := last[u.source]; ok {
				assert.Greater(t, u.seq, prev)
			}
			last[u.source] = u.seq
		}
		assert.Equal(t, obs.inserts[c], len(received[c]))
		assert.Equal(t, obs.pops[c], len(received[c]))
	}
	assert.Len(t, seen, producers*perSource)
	assert.Equal(t, []int{0, 0, 0}, s.Sizes())
}

func TestConsumerDrainsAfterTrackerReachesZero(t *testing.T) {
	s, err := NewSet[string](2, 8)
	require.NoError(t, err)
	jobs, err := tracker.New(2)
	require.NoError(t, err)
	ctx := context.Background()

	// producer 1 finishes without writing to queue 1
	jobs.Decrement()

	// producer 2 leaves three items in queue 1 and then finishes
	for _, line := range []string{"x", "y", "z"} {
		require.NoError(t, s.InsertAt(ctx, 1, line))
	}
	jobs.Decrement()
	require.True(t, jobs.IsDone())

	var drained []string
	for {
		item, ok, err := s.PopWait(ctx, 1, jobs.Done())
		require.NoError(t, err)
		if !ok {
			break
		}
		drained = append(drained, item)
	}
	assert.Equal(t, []string{"x", "y", "z"}, drained)
}

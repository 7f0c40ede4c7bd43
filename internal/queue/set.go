package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// ClaimOutcome describes the result of one probe of the selection protocol
type ClaimOutcome int

const (
	// ClaimAcquired means the producer claimed the queue and inserted
	ClaimAcquired ClaimOutcome = iota
	// ClaimBusy means another producer held the claim
	ClaimBusy
	// ClaimFull means the claim was won but the queue had no room
	ClaimFull
)

// String returns the string representation of the outcome
func (o ClaimOutcome) String() string {
	switch o {
	case ClaimAcquired:
		return "acquired"
	case ClaimBusy:
		return "busy"
	case ClaimFull:
		return "full"
	default:
		return "unknown"
	}
}

// Observer receives queue events. Implementations must be safe for
// concurrent use; calls happen outside every queue lock.
type Observer interface {
	OnClaim(queue int, outcome ClaimOutcome)
	OnInsert(queue int, depth int)
	OnPop(queue int, depth int, wait time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnClaim(int, ClaimOutcome)     {}
func (nopObserver) OnInsert(int, int)             {}
func (nopObserver) OnPop(int, int, time.Duration) {}

// SetOption configures a Set
type SetOption func(*setOptions)

type setOptions struct {
	probeLimit int
	seed       *uint64
	observer   Observer
}

// WithProbeLimit caps the random probes per round before a producer parks
func WithProbeLimit(n int) SetOption {
	return func(o *setOptions) {
		o.probeLimit = n
	}
}

// WithSeed makes queue selection deterministic
func WithSeed(seed uint64) SetOption {
	return func(o *setOptions) {
		o.seed = &seed
	}
}

// WithObserver registers an observer for claim, insert and pop events
func WithObserver(obs Observer) SetOption {
	return func(o *setOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Set is a fixed array of bounded queues with per-queue claim flags.
// Producers pick a queue by random probing; each consumer drains one
// queue by index.
type Set[T any] struct {
	queues []*Queue[T]
	claims []atomic.Bool

	probeLimit int
	observer   Observer

	rngMu sync.Mutex
	rng   *rand.Rand

	// version advances on every pop and every release after an insert;
	// parked producers wait for it to move
	version atomic.Uint64
	waiters atomic.Int64
	mu      sync.Mutex
	changed *sync.Cond
}

// NewSet creates n empty queues of the given capacity
func NewSet[T any](n, capacity int, opts ...SetOption) (*Set[T], error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	o := setOptions{probeLimit: n, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.probeLimit < 1 {
		o.probeLimit = n
	}

	s := &Set[T]{
		queues:     make([]*Queue[T], n),
		claims:     make([]atomic.Bool, n),
		probeLimit: o.probeLimit,
		observer:   o.observer,
	}
	for i := range s.queues {
		q, err := New[T](capacity)
		if err != nil {
			return nil, err
		}
		s.queues[i] = q
	}

	if o.seed != nil {
		s.rng = rand.New(rand.NewPCG(*o.seed, *o.seed^0x9e3779b97f4a7c15))
	} else {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.changed = sync.NewCond(&s.mu)
	return s, nil
}

// Len returns the number of queues
func (s *Set[T]) Len() int {
	return len(s.queues)
}

// Queue returns queue i
func (s *Set[T]) Queue(i int) *Queue[T] {
	return s.queues[i]
}

// Sizes returns the current depth of every queue
func (s *Set[T]) Sizes() []int {
	sizes := make([]int, len(s.queues))
	for i, q := range s.queues {
		sizes[i] = q.Size()
	}
	return sizes
}

// Claim atomically takes the claim on queue i and reports whether it did
func (s *Set[T]) Claim(i int) bool {
	return s.claims[i].CompareAndSwap(false, true)
}

// Claimed reports whether queue i is currently claimed
func (s *Set[T]) Claimed(i int) bool {
	return s.claims[i].Load()
}

// Release gives up the claim on queue i and wakes parked producers
func (s *Set[T]) Release(i int) {
	if !s.claims[i].CompareAndSwap(true, false) {
		panic(fmt.Sprintf("queue: release of unclaimed queue %d", i))
	}
	s.bump()
}

// Insert places item in some queue chosen by random probing and returns
// that queue's index. A probe claims a queue, inserts if it has room, and
// releases the claim; claim and insert form one unit so no other producer
// can touch the queue in between. After ProbeLimit failed probes the caller
// parks until a pop or release changes the set, or ctx ends.
func (s *Set[T]) Insert(ctx context.Context, item T) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		seen := s.version.Load()
		for p := 0; p < s.probeLimit; p++ {
			i := s.pick()
			if !s.Claim(i) {
				s.observer.OnClaim(i, ClaimBusy)
				continue
			}

			if s.queues[i].TryInsert(item) {
				depth := s.queues[i].Size()
				s.Release(i)
				s.observer.OnClaim(i, ClaimAcquired)
				s.observer.OnInsert(i, depth)
				return i, nil
			}

			// full: nothing changed, so no wake-up for other producers
			s.claims[i].Store(false)
			s.observer.OnClaim(i, ClaimFull)
		}

		if err := s.await(ctx, seen); err != nil {
			return -1, err
		}
	}
}

// InsertAt places item in queue i, waiting for the claim and then for
// room. Used when producers are pinned to one queue.
func (s *Set[T]) InsertAt(ctx context.Context, i int, item T) error {
	if i < 0 || i >= len(s.queues) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}

	for {
		seen := s.version.Load()
		if s.Claim(i) {
			break
		}
		s.observer.OnClaim(i, ClaimBusy)
		if err := s.await(ctx, seen); err != nil {
			return err
		}
	}

	err := s.queues[i].Insert(ctx, item)
	depth := s.queues[i].Size()
	s.Release(i)
	if err != nil {
		return err
	}
	s.observer.OnClaim(i, ClaimAcquired)
	s.observer.OnInsert(i, depth)
	return nil
}

// PopWait pops from queue i, blocking while it is empty, until stop is
// closed with the queue empty (ok=false) or ctx ends.
func (s *Set[T]) PopWait(ctx context.Context, i int, stop <-chan struct{}) (T, bool, error) {
	start := time.Now()
	item, ok, err := s.queues[i].PopWait(ctx, stop)
	if ok {
		s.bump()
		s.observer.OnPop(i, s.queues[i].Size(), time.Since(start))
	}
	return item, ok, err
}

func (s *Set[T]) pick() int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(len(s.queues))
}

// bump advances the version and wakes parked producers if there are any
func (s *Set[T]) bump() {
	s.version.Add(1)
	if s.waiters.Load() > 0 {
		s.mu.Lock()
		s.changed.Broadcast()
		s.mu.Unlock()
	}
}

// await parks until the version moves past seen or ctx ends
func (s *Set[T]) await(ctx context.Context, seen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waiters.Add(1)
	defer s.waiters.Add(-1)

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.changed.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	for s.version.Load() == seen {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.changed.Wait()
	}
	return nil
}

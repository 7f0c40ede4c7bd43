package queue

import (
	"context"
	"fmt"
	"sync"
)

// Queue is a fixed-capacity circular FIFO guarded by its own mutex.
// Producers block in Insert while it is full; consumers block in PopWait
// while it is empty.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items []T
	front int
	rear  int
	count int
}

// New creates an empty queue holding at most capacity items
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	q := &Queue[T]{
		items: make([]T, capacity),
		front: 0,
		// rear sits one slot behind front so the first insert lands at 0
		rear:  capacity - 1,
		count: 0,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q, nil
}

// IsEmpty reports whether the queue holds no items
func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// IsFull reports whether the queue holds Cap() items
func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == len(q.items)
}

// Size returns the number of items currently held
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Insert appends item, blocking while the queue is full. It returns
// ctx.Err() if the context ends before space frees up; the item is not
// inserted in that case.
func (q *Queue[T]) Insert(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.items) {
		stop := context.AfterFunc(ctx, q.broadcast(q.notFull))
		defer stop()

		for q.count == len(q.items) {
			if err := ctx.Err(); err != nil {
				return err
			}
			q.notFull.Wait()
		}
	}

	q.put(item)
	return nil
}

// TryInsert appends item if there is room and reports whether it did
func (q *Queue[T]) TryInsert(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.items) {
		return false
	}
	q.put(item)
	return true
}

// Pop removes and returns the front item. Calling Pop on an empty queue is
// a programming error and panics with ErrEmpty.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		panic(ErrEmpty)
	}
	return q.take()
}

// PopWait removes and returns the front item, blocking while the queue is
// empty. It returns ok=false with a nil error once the queue is empty and
// stop is closed; items inserted before that are always returned first.
// A nil stop channel never closes.
func (q *Queue[T]) PopWait(ctx context.Context, stop <-chan struct{}) (item T, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		cancel := context.AfterFunc(ctx, q.broadcast(q.notEmpty))
		defer cancel()

		if stop != nil {
			quit := make(chan struct{})
			defer close(quit)
			go q.wakeOn(stop, quit)
		}

		for q.count == 0 {
			if closed(stop) {
				return item, false, nil
			}
			if err := ctx.Err(); err != nil {
				return item, false, err
			}
			q.notEmpty.Wait()
		}
	}

	return q.take(), true, nil
}

// Peek returns the front item without removing it
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.items[q.front], true
}

// put writes at the slot after rear. Caller holds mu and has checked room.
func (q *Queue[T]) put(item T) {
	q.rear++
	if q.rear == len(q.items) {
		q.rear = 0
	}
	q.items[q.rear] = item
	q.count++
	q.notEmpty.Broadcast()
}

// take reads the slot at front. Caller holds mu and has checked count > 0.
func (q *Queue[T]) take() T {
	var zero T
	item := q.items[q.front]
	q.items[q.front] = zero
	q.front++
	if q.front == len(q.items) {
		q.front = 0
	}
	q.count--
	q.notFull.Broadcast()
	return item
}

func (q *Queue[T]) broadcast(c *sync.Cond) func() {
	return func() {
		q.mu.Lock()
		c.Broadcast()
		q.mu.Unlock()
	}
}

// wakeOn broadcasts notEmpty when stop closes, unless quit closes first
func (q *Queue[T]) wakeOn(stop <-chan struct{}, quit <-chan struct{}) {
	select {
	case <-stop:
		q.broadcast(q.notEmpty)()
	case <-quit:
	}
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

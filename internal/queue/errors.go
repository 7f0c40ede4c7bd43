package queue

import "errors"

var (
	// ErrInvalidCapacity is returned when a queue is built with capacity < 1
	ErrInvalidCapacity = errors.New("queue capacity must be at least 1")

	// ErrInvalidCount is returned when a set is built with fewer than 1 queue
	ErrInvalidCount = errors.New("queue set needs at least 1 queue")

	// ErrEmpty is the panic value for a pop on an empty queue
	ErrEmpty = errors.New("pop on empty queue")

	// ErrIndexOutOfRange is returned for a queue index outside the set
	ErrIndexOutOfRange = errors.New("queue index out of range")
)

package pipeline

import (
	"errors"
	"fmt"

	"github.com/pnadon/producer-consumer/internal/shared/id"
)

var (
	// ErrNoSources is returned when a pipeline has nothing to read
	ErrNoSources = errors.New("pipeline needs at least one source")

	// ErrInvalidConfig is wrapped by configuration failures
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrAlreadyRun is returned by a second call to Run
	ErrAlreadyRun = errors.New("pipeline already run")

	// ErrPanic wraps a panic recovered from a task
	ErrPanic = errors.New("task panicked")

	// ErrDrainTimeout is returned by a consumer that could not finish
	// draining after cancellation
	ErrDrainTimeout = errors.New("drain timed out")
)

// Task roles
const (
	RoleProducer = "producer"
	RoleConsumer = "consumer"
)

// TaskError identifies the task that failed
type TaskError struct {
	Role  string
	Index int
	ID    id.TaskID
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %d (%s): %v", e.Role, e.Index, e.ID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

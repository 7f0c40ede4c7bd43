package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pnadon/producer-consumer/internal/infrastructure/logging"
	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/queue"
	"github.com/pnadon/producer-consumer/internal/shared/id"
	"github.com/pnadon/producer-consumer/internal/sink"
	"github.com/pnadon/producer-consumer/internal/tokenize"
)

// SinkFactory opens the sink for consumer i
type SinkFactory func(i int) (sink.Sink, error)

// Consumer drains one queue for its whole life, tokenizes each unit and
// writes the result to its sink
type Consumer struct {
	Index int
	ID    id.TaskID

	set          *queue.Set[Unit]
	done         <-chan struct{}
	splitter     *tokenize.Splitter
	mode         Mode
	open         SinkFactory
	drainTimeout time.Duration

	log     *logging.Logger
	metrics *monitoring.Metrics
	events  bool

	state     stateCell
	emitted   atomic.Int64
	discarded atomic.Int64
	tokens    atomic.Int64
}

// Run pops until the queue is empty and every producer has finished. After
// ctx is cancelled it keeps draining for up to the drain timeout, since
// producers stop inserting once they see the cancellation. A sink failure
// ends output but not draining: the remaining units are discarded so
// producers pinned to this queue never block on it.
func (c *Consumer) Run(ctx context.Context) (err error) {
	timer := monitoring.NewTimer(c.metrics, RoleConsumer)
	defer func() {
		c.state.set(StateDone)
		timer.Stop(status(err))
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	var sinkErr error
	out, err := c.open(c.Index)
	if err != nil {
		sinkErr = fmt.Errorf("failed to open output: %w", err)
		c.log.Error("Output unavailable, discarding units", zap.Error(err))
	} else {
		defer func() {
			if cerr := out.Close(); cerr != nil && sinkErr == nil {
				err = errors.Join(err, fmt.Errorf("failed to close output: %w", cerr))
			}
		}()
	}

	popCtx := ctx
	draining := false

	for {
		if sinkErr != nil {
			c.state.set(StateDiscarding)
		} else {
			c.state.set(StateWaiting)
		}

		unit, ok, perr := c.set.PopWait(popCtx, c.Index, c.done)
		if perr != nil {
			if !draining && ctx.Err() != nil {
				var cancel context.CancelFunc
				popCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), c.drainTimeout)
				defer cancel()
				draining = true
				c.log.Info("Cancelled, draining queue", zap.Int("depth", c.set.Queue(c.Index).Size()))
				continue
			}
			return errors.Join(sinkErr, fmt.Errorf("%w: %w", ErrDrainTimeout, perr))
		}
		if !ok {
			c.event("done", zap.Int64("emitted", c.emitted.Load()), zap.Int64("discarded", c.discarded.Load()))
			return sinkErr
		}

		if sinkErr != nil {
			c.discard()
			continue
		}

		c.state.set(StateTransforming)
		rendered := c.render(unit)

		c.state.set(StateEmitting)
		if werr := c.emit(out, rendered); werr != nil {
			sinkErr = fmt.Errorf("failed to write output: %w", werr)
			c.log.Error("Output failed, discarding remaining units", zap.Error(werr))
			c.discard()
			continue
		}

		tokens := strings.Count(rendered, string(tokenize.Delimiter))
		c.emitted.Add(1)
		c.tokens.Add(int64(tokens))
		c.metrics.RecordTokens(tokens)
		c.event("consumed", zap.Int("source", unit.Source), zap.Int("seq", unit.Seq))
	}
}

// State returns the current loop state
func (c *Consumer) State() State {
	return c.state.get()
}

// Emitted returns how many units were written
func (c *Consumer) Emitted() int64 {
	return c.emitted.Load()
}

// Discarded returns how many units were dropped after a sink failure
func (c *Consumer) Discarded() int64 {
	return c.discarded.Load()
}

func (c *Consumer) render(u Unit) string {
	if c.mode == ModeByte {
		return string([]byte{c.splitter.Byte(u.Data[0])})
	}
	return c.splitter.Line(u.Data)
}

// emit writes one record; a panicking sink counts as a failed write
func (c *Consumer) emit(out sink.Sink, rendered string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	_, err = io.WriteString(out, rendered)
	return err
}

func (c *Consumer) discard() {
	c.discarded.Add(1)
	c.metrics.RecordDiscarded()
}

func (c *Consumer) event(msg string, fields ...zap.Field) {
	if c.events {
		c.log.Debug(msg, fields...)
	}
}

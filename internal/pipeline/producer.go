package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pnadon/producer-consumer/internal/infrastructure/logging"
	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/queue"
	"github.com/pnadon/producer-consumer/internal/shared/id"
	"github.com/pnadon/producer-consumer/internal/source"
)

// Unit is one queue item
type Unit struct {
	// Source is the index of the producer that read it
	Source int
	// Seq numbers units within their source from 0
	Seq  int
	Data string
}

// Producer reads one source and inserts its units into the queue set
type Producer struct {
	Index int
	ID    id.TaskID
	Path  string

	set     *queue.Set[Unit]
	release func()
	opts    source.Options
	mode    Mode
	// pinned is the target queue, or -1 for random assignment
	pinned  int
	limiter *rate.Limiter

	log     *logging.Logger
	metrics *monitoring.Metrics
	events  bool

	state     stateCell
	units     atomic.Int64
	charset   string
	mime      string
	cancelled bool
}

// Run reads the source to the end. The tracker is released exactly once
// when Run returns, whatever the outcome.
func (p *Producer) Run(ctx context.Context) (err error) {
	timer := monitoring.NewTimer(p.metrics, RoleProducer)
	defer func() {
		p.state.set(StateDone)
		p.release()
		timer.Stop(status(err))
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	src, err := source.Open(p.Path, p.opts)
	if err != nil {
		return err
	}
	defer src.Close()

	p.charset = src.Charset
	p.mime = src.MIME
	p.event("opened", zap.String("path", p.Path), zap.String("mime", src.MIME), zap.String("charset", src.Charset))

	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			p.cancelled = true
			return err
		}

		p.state.set(StateReading)
		data, err := p.read(src)
		if errors.Is(err, io.EOF) {
			p.event("finished", zap.Int64("units", p.units.Load()), zap.Int("lines", src.Lines()))
			return nil
		}
		if err != nil {
			return err
		}
		p.metrics.RecordUnitRead(string(p.mode))

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				p.cancelled = ctx.Err() != nil
				return err
			}
		}

		p.state.set(StateInserting)
		q, err := p.insert(ctx, Unit{Source: p.Index, Seq: seq, Data: data})
		if err != nil {
			p.cancelled = ctx.Err() != nil
			return err
		}
		p.units.Add(1)
		p.event("pushed", zap.Int("queue", q), zap.Int("seq", seq))
	}
}

// State returns the current loop state
func (p *Producer) State() State {
	return p.state.get()
}

// Units returns how many units were inserted
func (p *Producer) Units() int64 {
	return p.units.Load()
}

func (p *Producer) read(src *source.Source) (string, error) {
	if p.mode == ModeByte {
		c, err := src.ReadByte()
		if err != nil {
			return "", err
		}
		return string([]byte{c}), nil
	}
	return src.ReadLine()
}

func (p *Producer) insert(ctx context.Context, u Unit) (int, error) {
	if p.pinned >= 0 {
		return p.pinned, p.set.InsertAt(ctx, p.pinned, u)
	}
	return p.set.Insert(ctx, u)
}

func (p *Producer) event(msg string, fields ...zap.Field) {
	if p.events {
		p.log.Debug(msg, fields...)
	}
}

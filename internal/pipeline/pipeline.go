package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pnadon/producer-consumer/internal/infrastructure/logging"
	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/queue"
	"github.com/pnadon/producer-consumer/internal/shared/id"
	"github.com/pnadon/producer-consumer/internal/sink"
	"github.com/pnadon/producer-consumer/internal/source"
	"github.com/pnadon/producer-consumer/internal/tokenize"
	"github.com/pnadon/producer-consumer/internal/tracker"
)

// Pipeline owns the queue set, the job tracker and every task of one run
type Pipeline struct {
	cfg   Config
	runID id.RunID

	set     *queue.Set[Unit]
	tracker *tracker.JobTracker
	tally   *tally

	producers []*Producer
	consumers []*Consumer

	stdout    io.Writer
	console   *sink.Console
	openSink  SinkFactory
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	started   atomic.Bool
	running   atomic.Bool
	startedAt time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger; the default discards
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records queue and task metrics
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// WithStdout replaces os.Stdout as the line mode console
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = w
	}
}

// WithSinks replaces the mode's default sinks
func WithSinks(factory SinkFactory) Option {
	return func(p *Pipeline) {
		p.openSink = factory
	}
}

// New builds the queue set, tracker and tasks for cfg. Nothing runs until
// Run is called.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	splitter, err := tokenize.NewSplitter(cfg.Separator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := &Pipeline{
		cfg:    cfg,
		runID:  id.NewRunID(),
		stdout: os.Stdout,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithRun(p.runID.String())

	p.tally = newTally(cfg.Queues, p.metrics)
	setOpts := []queue.SetOption{queue.WithObserver(p.tally)}
	if cfg.ProbeLimit > 0 {
		setOpts = append(setOpts, queue.WithProbeLimit(cfg.ProbeLimit))
	}
	if cfg.Seed != 0 {
		setOpts = append(setOpts, queue.WithSeed(cfg.Seed))
	}
	if p.set, err = queue.NewSet[Unit](cfg.Queues, cfg.Capacity, setOpts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if p.tracker, err = tracker.New(len(cfg.Sources)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if p.openSink == nil {
		switch cfg.Mode {
		case ModeByte:
			if cfg.OutDir == "" {
				return nil, fmt.Errorf("%w: byte mode needs an output directory", ErrInvalidConfig)
			}
			p.openSink = func(i int) (sink.Sink, error) {
				return sink.Create(cfg.OutDir, i)
			}
		default:
			p.console = sink.NewConsole(p.stdout)
			p.openSink = func(int) (sink.Sink, error) {
				return p.console.View(), nil
			}
		}
	}

	p.producers = make([]*Producer, len(cfg.Sources))
	for i, path := range cfg.Sources {
		p.producers[i] = p.newProducer(i, path)
	}
	p.consumers = make([]*Consumer, cfg.Queues)
	for i := range p.consumers {
		p.consumers[i] = p.newConsumer(i, splitter)
	}

	return p, nil
}

func (p *Pipeline) newProducer(i int, path string) *Producer {
	taskID := id.NewProducerID()
	prod := &Producer{
		Index: i,
		ID:    taskID,
		Path:  path,
		set:   p.set,
		opts: source.Options{
			MaxItemSize: p.cfg.MaxItemSize,
			AllowBinary: p.cfg.AllowBinary,
			// byte mode copies the stored bytes
			Raw: p.cfg.Mode == ModeByte,
		},
		mode:    p.cfg.Mode,
		pinned:  -1,
		log:     p.logger.Task(RoleProducer, i, taskID.String()),
		metrics: p.metrics,
		events:  p.cfg.Events,
	}
	if p.cfg.Assignment == AssignPinned {
		prod.pinned = i % p.cfg.Queues
	}
	if p.cfg.RateLimit > 0 {
		prod.limiter = rate.NewLimiter(rate.Limit(p.cfg.RateLimit), 1)
	}

	done := p.tracker.Handle()
	prod.release = func() {
		done()
		p.metrics.SetProducersActive(p.tracker.Remaining())
	}
	return prod
}

func (p *Pipeline) newConsumer(i int, splitter *tokenize.Splitter) *Consumer {
	taskID := id.NewConsumerID()
	return &Consumer{
		Index:        i,
		ID:           taskID,
		set:          p.set,
		done:         p.tracker.Done(),
		splitter:     splitter,
		mode:         p.cfg.Mode,
		open:         p.openSink,
		drainTimeout: p.cfg.DrainTimeout,
		log:          p.logger.Task(RoleConsumer, i, taskID.String()),
		metrics:      p.metrics,
		events:       p.cfg.Events,
	}
}

// RunID identifies this run in logs and the report
func (p *Pipeline) RunID() id.RunID {
	return p.runID
}

// Run starts every producer and consumer together and waits for all of
// them. Failed tasks do not stop the others; their errors come back joined,
// each as a *TaskError. When ctx is cancelled producers stop, consumers
// drain what was already queued, and ctx.Err() is part of the result.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	p.startedAt = time.Now()
	p.running.Store(true)
	defer p.running.Store(false)

	p.metrics.SetProducersActive(len(p.producers))
	p.logger.Info("Starting pipeline",
		zap.Int("producers", len(p.producers)),
		zap.Int("queues", len(p.consumers)),
		zap.Int("capacity", p.cfg.Capacity),
		zap.String("mode", string(p.cfg.Mode)),
		zap.String("assignment", string(p.cfg.Assignment)),
	)

	perr := make([]error, len(p.producers))
	cerr := make([]error, len(p.consumers))

	var wg sync.WaitGroup
	for i, c := range p.consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cerr[i] = c.Run(ctx)
		}()
	}
	for i, prod := range p.producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perr[i] = prod.Run(ctx)
		}()
	}
	wg.Wait()

	var errs []error
	for i, err := range perr {
		if err == nil || p.producers[i].cancelled {
			continue
		}
		p.metrics.RecordTaskFailure(RoleProducer)
		errs = append(errs, &TaskError{Role: RoleProducer, Index: i, ID: p.producers[i].ID, Err: err})
	}
	for i, err := range cerr {
		if err == nil {
			continue
		}
		p.metrics.RecordTaskFailure(RoleConsumer)
		errs = append(errs, &TaskError{Role: RoleConsumer, Index: i, ID: p.consumers[i].ID, Err: err})
	}
	if p.console != nil {
		if err := p.console.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush console: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	report := p.report(time.Since(p.startedAt), perr, cerr, ctx.Err() != nil)
	for _, err := range errs {
		var taskErr *TaskError
		if errors.As(err, &taskErr) {
			p.logger.Error("Task failed",
				zap.String("role", taskErr.Role),
				zap.Int("index", taskErr.Index),
				zap.String("task_id", taskErr.ID.String()),
				zap.Error(taskErr.Err),
			)
		}
	}
	return report, errors.Join(errs...)
}

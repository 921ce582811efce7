package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull  = errors.New("background queue is full")
	ErrPoolClosed = errors.New("background pool is closed")
)

// Task is one unit of background work
type Task func(ctx context.Context)

// Executor accepts background units
type Executor interface {
	Submit(ctx context.Context, name string, task Task) error
}

// Config sizes the pool
type Config struct {
	Workers   int
	QueueSize int
}

// DefaultConfig returns the default pool size
func DefaultConfig() Config {
	return Config{
		Workers:   2,
		QueueSize: 256,
	}
}

type unit struct {
	ctx  context.Context
	name string
	task Task
}

// Pool is a fixed-size worker pool with a bounded queue
type Pool struct {
	queue   chan unit
	logger  *zap.Logger
	metrics *monitoring.Metrics
	group   *errgroup.Group
	pending atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewPool starts cfg.Workers workers
func NewPool(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		queue:   make(chan unit, cfg.QueueSize),
		logger:  logger,
		metrics: metrics,
		group:   &errgroup.Group{},
	}

	for i := 0; i < cfg.Workers; i++ {
		p.group.Go(p.work)
	}

	return p
}

// Submit enqueues task. It returns ctx.Err() if the owning scope is already
// done, ErrQueueFull if the queue has no room and ErrPoolClosed after Close.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.RecordUnit(monitoring.UnitRejected)
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		p.metrics.RecordUnit(monitoring.UnitCancelled)
		return err
	}

	select {
	case p.queue <- unit{ctx: ctx, name: name, task: task}:
		p.metrics.SetQueueDepth(int(p.pending.Add(1)))
		return nil
	default:
		p.metrics.RecordUnit(monitoring.UnitRejected)
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

// Pending returns the number of queued units
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

// Close stops intake and waits for queued units to drain or ctx to end
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() error {
	for u := range p.queue {
		p.metrics.SetQueueDepth(int(p.pending.Add(-1)))
		p.metrics.RecordUnit(run(u, p.logger))
	}
	return nil
}

// run executes one unit and reports its outcome
func run(u unit, logger *zap.Logger) (outcome string) {
	if u.ctx.Err() != nil {
		logger.Debug("background unit cancelled before start", zap.String("unit", u.name))
		return monitoring.UnitCancelled
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("background unit panicked",
				zap.String("unit", u.name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			outcome = monitoring.UnitPanicked
		}
	}()

	u.task(u.ctx)

	if u.ctx.Err() != nil {
		return monitoring.UnitCancelled
	}
	return monitoring.UnitCompleted
}

// Inline runs units synchronously on the caller's goroutine.
// It keeps the cancellation semantics of Pool and is used for
// deterministic replays.
type Inline struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Submit runs task immediately unless ctx is already done
func (e Inline) Submit(ctx context.Context, name string, task Task) error {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		e.Metrics.RecordUnit(monitoring.UnitCancelled)
		return err
	}
	e.Metrics.RecordUnit(run(unit{ctx: ctx, name: name, task: task}, logger))
	return nil
}

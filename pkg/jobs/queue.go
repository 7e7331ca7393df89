package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one queued unit of background work.
type Task struct {
	ID      string
	Kind    string
	Payload interface{}
	Attempt int
}

// Handler processes a task. A returned error triggers a delayed retry up to
// the configured maximum.
type Handler func(context.Context, Task) error

// Config tunes the dispatcher's worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Dispatcher is an in-memory background task queue backed by goroutines.
// Tasks are best-effort: they do not survive a restart.
type Dispatcher struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDispatcher builds a dispatcher for the given handler.
func NewDispatcher(name string, handler Handler, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Dispatcher{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan Task, cfg.BufferSize),
	}
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.started = true
	d.logger.Info("dispatcher started", zap.String("queue", d.name), zap.Int("workers", d.workers))
}

// Stop cancels the workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped", zap.String("queue", d.name))
}

// Dispatch queues a task, blocking while the buffer is full.
func (d *Dispatcher) Dispatch(task Task) error {
	d.mu.Lock()
	ctx := d.ctx
	started := d.started
	d.mu.Unlock()

	if !started {
		return fmt.Errorf("dispatcher %s not started", d.name)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("dispatcher %s stopped: %w", d.name, ctx.Err())
	case d.tasks <- task:
		return nil
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case task := <-d.tasks:
			if err := d.handler(d.ctx, task); err != nil {
				d.retry(task, err)
			}
		}
	}
}

func (d *Dispatcher) retry(task Task, err error) {
	task.Attempt++
	if task.Attempt > d.maxRetries {
		d.logger.Error("task exceeded retries",
			zap.String("queue", d.name),
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Error(err))
		return
	}
	d.logger.Warn("task failed, retrying",
		zap.String("queue", d.name),
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Int("attempt", task.Attempt),
		zap.Error(err))

	go func(t Task) {
		timer := time.NewTimer(d.retryDelay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
		case <-timer.C:
			if err := d.Dispatch(t); err != nil {
				d.logger.Error("failed to requeue task",
					zap.String("queue", d.name),
					zap.String("task_id", t.ID),
					zap.Error(err))
			}
		}
	}(task)
}

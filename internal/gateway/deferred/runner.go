// Package deferred runs work that must outlive the HTTP response that
// scheduled it, such as response record inserts and cache writes.
//
// Tasks are queued on a buffered channel and executed by a fixed worker
// pool. Close stops intake and blocks until every queued task has run, so a
// process that calls Close before exiting never loses accepted work. Tasks
// that cannot be queued (queue full past the enqueue timeout, or runner
// closed) are abandoned and logged.
package deferred

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/metrics"
)

// Task is one unit of background work
type Task func(ctx context.Context) error

// Config contains configuration for the runner.
type Config struct {
	// Workers is the number of goroutines draining the queue.
	// Default: 4
	Workers int

	// Buffer is the queue capacity.
	// Default: 1024
	Buffer int

	// TaskTimeout bounds each task's context.
	// Default: 10 seconds
	TaskTimeout time.Duration

	// EnqueueTimeout is how long Go waits on a full queue before dropping.
	// Default: 100 milliseconds
	EnqueueTimeout time.Duration
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		Buffer:         1024,
		TaskTimeout:    10 * time.Second,
		EnqueueTimeout: 100 * time.Millisecond,
	}
}

type job struct {
	name string
	run  Task
}

// Runner executes tasks in the background.
type Runner struct {
	cfg    Config
	queue  chan job
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts a runner with cfg.Workers workers. Zero fields take defaults.
func New(cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = def.EnqueueTimeout
	}

	r := &Runner{
		cfg:    cfg,
		queue:  make(chan job, cfg.Buffer),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "deferred.runner"),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	r.logger.Info("deferred runner started",
		"workers", cfg.Workers,
		"buffer", cfg.Buffer,
		"task_timeout", cfg.TaskTimeout,
	)

	return r
}

// Go schedules task and returns immediately. It reports whether the task
// was accepted; a rejected task never runs.
func (r *Runner) Go(name string, task Task) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(name, "runner closed")
		return false
	}

	j := job{name: name, run: task}
	select {
	case r.queue <- j:
		metrics.DeferredQueueDepth.Set(float64(len(r.queue)))
		return true
	default:
	}

	timer := time.NewTimer(r.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case r.queue <- j:
		metrics.DeferredQueueDepth.Set(float64(len(r.queue)))
		return true
	case <-timer.C:
		r.drop(name, "queue full")
		return false
	}
}

// Pending reports how many tasks are queued but not yet started
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Close stops accepting tasks, runs everything already queued and waits
// for the workers to exit. It is safe to call more than once.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.logger.Info("draining deferred tasks", "pending", len(r.queue))
	r.wg.Wait()
	r.logger.Info("deferred runner stopped")
	return nil
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for {
		select {
		case j := <-r.queue:
			r.execute(j)
		case <-r.done:
			for {
				select {
				case j := <-r.queue:
					r.execute(j)
				default:
					return
				}
			}
		}
	}
}

func (r *Runner) execute(j job) {
	metrics.DeferredQueueDepth.Set(float64(len(r.queue)))

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	err := r.safeRun(ctx, j)
	if err != nil {
		metrics.DeferredTasks.WithLabelValues("error").Inc()
		r.logger.Error("deferred task failed",
			"task", j.name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}

	metrics.DeferredTasks.WithLabelValues("ok").Inc()
	r.logger.Debug("deferred task done",
		"task", j.name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (r *Runner) safeRun(ctx context.Context, j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Task: j.name, Value: p}
		}
	}()
	return j.run(ctx)
}

func (r *Runner) drop(name, reason string) {
	metrics.DeferredTasks.WithLabelValues("dropped").Inc()
	r.logger.Error("deferred task abandoned",
		"task", name,
		"reason", reason,
		"capacity", r.cfg.Buffer,
	)
}

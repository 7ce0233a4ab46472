package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppiankov/factlens/internal/logging"
)

var (
	// ErrQueueFull is returned by TrySubmit when every queue slot is taken
	ErrQueueFull = errors.New("job queue full")
	// ErrPoolClosed is returned when submitting to a pool that is shutting down
	ErrPoolClosed = errors.New("worker pool closed")
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is recorded when a job panics
type PanicResult struct {
	Value any
}

// GetError returns the panic as an error
func (r *PanicResult) GetError() error {
	return fmt.Errorf("job panicked: %v", r.Value)
}

// Pool manages a bounded queue served by a fixed number of workers
type Pool struct {
	workers    int
	jobQueue   chan Job
	handle     func(Result)
	collector  *ResultCollector
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	logger     *slog.Logger

	mu     sync.RWMutex // guards closed against sends on jobQueue
	closed bool
}

// NewPool creates a pool with the given worker count and queue capacity.
// A non-positive queue size defaults to twice the worker count.
func NewPool(workers, queueSize int) *Pool {
	return NewPoolWithContext(context.Background(), workers, queueSize)
}

// NewPoolWithContext creates a pool whose jobs run under ctx
func NewPoolWithContext(ctx context.Context, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	ctx, cancel := context.WithCancel(ctx)
	collector := NewResultCollector()

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, queueSize),
		handle:     collector.Add,
		collector:  collector,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logging.OrDiscard(nil),
	}
}

// OnResult replaces result collection with fn. Call before Start.
// Long-running pools use it so results do not accumulate.
func (p *Pool) OnResult(fn func(Result)) *Pool {
	p.handle = fn
	p.collector = nil
	return p
}

// WithLogger sets the logger used for job panics. Call before Start.
func (p *Pool) WithLogger(logger *slog.Logger) *Pool {
	p.logger = logging.OrDiscard(logger)
	return p
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if result := p.run(job); p.handle != nil {
				p.handle(result)
			}
		}
	}
}

// run executes a job, turning a panic into a PanicResult
func (p *Pool) run(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "panic", r)
			result = &PanicResult{Value: r}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	case p.jobQueue <- job:
		return nil
	}
}

// TrySubmit queues a job without blocking
func (p *Pool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return ErrPoolClosed
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up
func (p *Pool) Pending() int {
	return len(p.jobQueue)
}

// Wait stops accepting jobs, drains the queue and returns the collected results.
// Results are nil when OnResult replaced collection.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()

	if p.collector == nil {
		return nil
	}
	return p.collector.Results()
}

// Shutdown cancels running jobs and stops the workers without draining the queue
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.close()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
}

// ResultCollector provides a safer way to collect results as they arrive
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of the collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

package worker

import (
	"context"
	"sort"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	seq int
	job Job
}

type indexedResult struct {
	seq    int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently.
// Wait returns results in submission order regardless of completion order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	collected  []indexedResult
	collectWg  sync.WaitGroup
	submitted  int
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a worker pool whose jobs stop when ctx is cancelled
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2), // Buffered to prevent blocking
		results:    make(chan indexedResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	// Results drain continuously so Submit never waits on an unread result
	p.collectWg.Add(1)
	go func() {
		defer p.collectWg.Done()
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker is the worker goroutine that processes jobs
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
			p.results <- indexedResult{seq: job.seq, result: job.job.Execute(p.ctx)}
		}
	}
}

// Submit submits a job to the pool for execution.
// Submit must not be called concurrently with itself or after Wait.
func (p *Pool) Submit(job Job) {
	seq := p.submitted
	p.submitted++
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- indexedJob{seq: seq, job: job}:
	}
}

// Wait waits for all jobs to complete and returns the results in submission order.
// Jobs dropped by cancellation are missing from the slice.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()

	sort.Slice(p.collected, func(i, j int) bool { return p.collected[i].seq < p.collected[j].seq })

	results := make([]Result, len(p.collected))
	for i, r := range p.collected {
		results[i] = r.result
	}
	return results
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// funcJob adapts a function to Job
type funcJob[R any] struct {
	fn func(ctx context.Context) (R, error)
}

type funcResult[R any] struct {
	value R
	err   error
}

func (r *funcResult[R]) GetError() error { return r.err }

func (j *funcJob[R]) Execute(ctx context.Context) Result {
	v, err := j.fn(ctx)
	return &funcResult[R]{value: v, err: err}
}

// Map applies fn to every item with the given concurrency and returns the
// outputs in input order. The first error cancels the remaining work and is returned.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewPoolWithContext(ctx, workers)
	pool.Start()

	var (
		firstErr error
		errOnce  sync.Once
	)

	for _, item := range items {
		item := item
		pool.Submit(&funcJob[R]{fn: func(ctx context.Context) (R, error) {
			v, err := fn(ctx, item)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
			return v, err
		}})
	}

	results := pool.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if len(results) != len(items) {
		return nil, ctx.Err()
	}

	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.(*funcResult[R]).value
	}
	return out, nil
}

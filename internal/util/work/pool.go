package work

import (
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("work pool closed")

// Job is a unit of work submitted to the pool.
type Job interface{}

// JobHandler defines the function signature for handling jobs.
type JobHandler func(job Job) error

// Pool is a fixed-size worker pool draining a buffered job queue. Pipeline
// runs execute here so transport goroutines are never blocked by slow
// external calls.
type Pool struct {
	jobs     chan Job
	handler  JobHandler
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	onError  func(job Job, err error)
}

// NewWorkPool creates a pool with numWorkers workers and a queue of queueSize.
func NewWorkPool(numWorkers, queueSize int, handler JobHandler) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 8
	}

	p := &Pool{
		jobs:    make(chan Job, queueSize),
		handler: handler,
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.run()
	}
	return p
}

// OnError installs a callback invoked when a handler returns an error.
func (p *Pool) OnError(fn func(job Job, err error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		err := p.handler(job)
		if err != nil {
			p.mu.RLock()
			cb := p.onError
			p.mu.RUnlock()
			if cb != nil {
				cb(job, err)
			}
		}
	}
}

// Submit enqueues a job. It returns ErrPoolClosed after Stop and blocks when
// the queue is full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	p.jobs <- job
	return nil
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}

// Package threadpool implements a fixed-size worker pool with a FIFO task
// queue, grounded on the original's BasicThreadPool: one mutex guards
// lifecycle state (started), a separate mutex (paired with a condition
// variable) guards the pending-task queue and the terminating flag, so a
// Schedule call contends with a concurrent Start/Stop only for the brief
// queue-mutex sections in which they set terminating.
package threadpool

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// Task is a unit of work submitted to the pool.
type Task func()

// ErrInvalidSize is returned by New when asked for zero threads.
var ErrInvalidSize = errors.New("threadpool: numThreads must be > 0")

// Pool is a fixed-size FIFO worker pool.
type Pool struct {
	numThreads int

	lifecycleMu sync.Mutex
	started     bool

	queueMu     sync.Mutex
	queueCond   *sync.Cond
	queue       *queue.Queue
	terminating bool

	workers sync.WaitGroup
}

// New creates a Pool with the given fixed number of worker goroutines.
// numThreads == 0 is a construction error, matching the original.
func New(numThreads int) (*Pool, error) {
	if numThreads <= 0 {
		return nil, ErrInvalidSize
	}
	p := &Pool{numThreads: numThreads, queue: queue.New()}
	p.queueCond = sync.NewCond(&p.queueMu)
	return p, nil
}

// Start launches the worker goroutines. Calling Start on an already-started
// pool is a no-op.
func (p *Pool) Start() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.queueMu.Lock()
	p.terminating = false
	p.queueMu.Unlock()

	for i := 0; i < p.numThreads; i++ {
		p.workers.Add(1)
		go p.run()
	}
}

// IsStarted reports whether the worker goroutines are running (Start was
// called with no later Stop). Schedule accepts tasks either way.
func (p *Pool) IsStarted() bool {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	return p.started
}

// Schedule enqueues a task for later execution by a worker goroutine. A
// task scheduled while the pool is stopped (not yet started, or after
// Stop) still enqueues; it runs once Start launches the workers, matching
// the original's "optional auto-start" contract — Schedule itself never
// fails.
func (p *Pool) Schedule(task Task) error {
	p.queueMu.Lock()
	p.queue.Add(task)
	p.queueCond.Signal()
	p.queueMu.Unlock()
	return nil
}

// Stop signals all workers to exit once the current queue is drained of
// in-flight execution, drops any pending (not-yet-started) tasks, and
// blocks until every worker goroutine has exited. Calling Stop on an
// already-stopped pool is a no-op. Stop is idempotent and may be followed
// by another Start.
func (p *Pool) Stop() {
	p.lifecycleMu.Lock()
	if !p.started {
		p.lifecycleMu.Unlock()
		return
	}
	p.started = false
	p.lifecycleMu.Unlock()

	p.queueMu.Lock()
	p.terminating = true
	p.queue = queue.New() // drop pending tasks
	p.queueCond.Broadcast()
	p.queueMu.Unlock()

	p.workers.Wait()
}

func (p *Pool) run() {
	defer p.workers.Done()
	for {
		p.queueMu.Lock()
		for p.queue.Length() == 0 && !p.terminating {
			p.queueCond.Wait()
		}
		if p.queue.Length() == 0 && p.terminating {
			p.queueMu.Unlock()
			return
		}
		task := p.queue.Remove().(Task)
		p.queueMu.Unlock()

		task()
	}
}

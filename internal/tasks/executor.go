// Package tasks runs blocking operations on a bounded worker pool and
// streams progress back to the submitter, delivering exactly one outcome
// per task.
package tasks

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Func is a unit of work. It reports progress through the callback and
// returns a value or an error, never both.
type Func func(ctx context.Context, progress func(string)) (any, error)

// Outcome is the single terminal result of a task.
type Outcome struct {
	Value any
	Err   error
}

// Handle is the submitter's view of a running task. Progress carries zero or
// more messages before Done yields. Done delivers at most one Outcome and is
// then closed; a superseded task's Done closes without an outcome.
type Handle struct {
	ID       string
	Name     string
	Progress <-chan string
	Done     <-chan Outcome
}

type job struct {
	handle   *Handle
	fn       Func
	progress chan string
	done     chan Outcome

	// Set for keyed tasks. A completion whose generation is no longer the
	// key's current one is discarded without delivering an outcome.
	key        string
	generation uint64
}

// Executor is a bounded pool of workers.
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan *job
	wg     sync.WaitGroup

	mu          sync.Mutex
	generations map[string]uint64
}

// NewExecutor starts an executor with the given number of workers.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan *job, 64),
		generations: make(map[string]uint64),
	}

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

// Submit schedules fn on the pool and returns its handle.
func (e *Executor) Submit(name string, fn Func) *Handle {
	return e.enqueue(name, "", 0, fn)
}

// SubmitKeyed schedules fn under a supersession key. Submitting again with
// the same key makes any still-running earlier task stale: its completion is
// silently discarded and its Done channel closes without an outcome.
func (e *Executor) SubmitKeyed(key, name string, fn Func) *Handle {
	e.mu.Lock()
	e.generations[key]++
	generation := e.generations[key]
	e.mu.Unlock()

	return e.enqueue(name, key, generation, fn)
}

func (e *Executor) enqueue(name, key string, generation uint64, fn Func) *Handle {
	progress := make(chan string, 16)
	done := make(chan Outcome, 1)
	handle := &Handle{
		ID:       uuid.NewString(),
		Name:     name,
		Progress: progress,
		Done:     done,
	}
	j := &job{
		handle:     handle,
		fn:         fn,
		progress:   progress,
		done:       done,
		key:        key,
		generation: generation,
	}

	select {
	case <-e.ctx.Done():
		close(progress)
		done <- Outcome{Err: e.ctx.Err()}
		close(done)
		return handle
	default:
	}

	select {
	case e.queue <- j:
	case <-e.ctx.Done():
		close(progress)
		done <- Outcome{Err: e.ctx.Err()}
		close(done)
	}
	return handle
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		select {
		case j := <-e.queue:
			e.run(j)
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Executor) run(j *job) {
	report := func(msg string) {
		// Progress must never block the worker on a slow consumer.
		select {
		case j.progress <- msg:
		default:
		}
	}

	value, err := j.fn(e.ctx, report)
	close(j.progress)

	if j.key != "" && !e.isCurrent(j.key, j.generation) {
		log.Printf("Task %s (%s) superseded, discarding result", j.handle.Name, j.handle.ID)
		close(j.done)
		return
	}

	j.done <- Outcome{Value: value, Err: err}
	close(j.done)
}

func (e *Executor) isCurrent(key string, generation uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[key] == generation
}

// Shutdown stops accepting work, cancels the pool context, waits for workers
// to exit and fails every job still sitting in the queue. Every handle issued
// before Shutdown resolves one way or another.
func (e *Executor) Shutdown() {
	e.cancel()
	e.wg.Wait()

	for {
		select {
		case j := <-e.queue:
			close(j.progress)
			j.done <- Outcome{Err: e.ctx.Err()}
			close(j.done)
		default:
			return
		}
	}
}

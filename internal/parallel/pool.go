// Package parallel provides the worker pool that runs the render queue's
// collection phase.
//
// Every task receives the index of the worker executing it. Callers use the
// index to select per-thread storage (arena slabs, bucket lists) so that
// tasks never share a write target, including tasks stolen from another
// worker's queue.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of work. worker is in [0, Workers()).
type Task func(worker int)

// WorkerPool is a pool of goroutines with per-worker queues.
//
// Workers primarily pull from their own queue and steal from others when it
// is empty, which balances load when some tasks are slower than others.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	// queues holds per-worker work queues.
	queues []chan Task

	done chan struct{}
	wg   sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers and starts
// them. If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan Task, workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan Task, queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(id, own)
			return

		case task := <-own:
			task(id)

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen(id)
				continue
			}
			select {
			case <-p.done:
				p.drain(id, own)
				return
			case task := <-own:
				task(id)
			}
		}
	}
}

// drain runs everything left in a queue.
func (p *WorkerPool) drain(id int, queue chan Task) {
	for {
		select {
		case task := <-queue:
			task(id)
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *WorkerPool) steal(id int) Task {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// ExecuteAll distributes tasks round-robin and waits for all of them.
// If the pool is closed, it is a no-op.
func (p *WorkerPool) ExecuteAll(tasks []Task) {
	if len(tasks) == 0 || !p.running.Load() {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))

	for i, fn := range tasks {
		wrapped := func(worker int) {
			defer wg.Done()
			fn(worker)
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			wg.Done()
		}
	}

	wg.Wait()
}

// ForEach calls fn(worker, i) for every i in [0, n), splitting the range
// into one contiguous chunk per worker, and waits for completion.
func (p *WorkerPool) ForEach(n int, fn func(worker, i int)) {
	if n <= 0 {
		return
	}
	chunks := min(p.workers, n)
	size := (n + chunks - 1) / chunks

	tasks := make([]Task, 0, chunks)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		tasks = append(tasks, func(worker int) {
			for i := start; i < end; i++ {
				fn(worker, i)
			}
		})
	}
	p.ExecuteAll(tasks)
}

// Close stops accepting work, runs what is queued and stops the workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the approximate number of queued tasks.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}

// Package compile runs deferred pipeline-state compilation on a pool of
// worker goroutines.
//
// A Queue collects material.Requests while the render queue emits draws.
// Workers pop requests in LIFO order and compile them against the deadline
// carried by the context given to Start. Requests that miss the deadline
// stay flagged pso.CompilationRequired and are counted as incomplete; the
// material system requests them again on a later frame.
//
// The first compile fault is latched: pending requests are dropped, further
// Enqueues are dropped, and StopAndWait returns the fault once.
package compile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rq/material"
	"github.com/gogpu/rq/pso"
)

// ErrQueueRunning is returned when starting a queue that is not idle.
var ErrQueueRunning = errors.New("compile: queue is already running")

// State is the lifecycle state of a Queue.
type State uint8

const (
	// Idle: no workers. Requests accumulate.
	Idle State = iota
	// Running: workers compile as requests arrive.
	Running
	// Draining: StopAndWait is waiting for workers to finish.
	Draining
)

var stateNames = [...]string{Idle: "Idle", Running: "Running", Draining: "Draining"}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Queue is a parallel compile queue.
//
// Enqueue, State, Pending and Processed are safe for concurrent use. Start,
// StopAndWait, RunSerial and the warm-up methods must be called from one
// goroutine.
type Queue struct {
	workers int

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []material.Request
	keepRunning bool
	state       State
	incomplete  int
	fault       error

	group     *SafeGroup
	processed atomic.Uint64
}

// New creates an idle queue that runs workers goroutines when started.
func New(workers int) *Queue {
	q := &Queue{workers: max(workers, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int { return q.workers }

// Enqueue adds a request and wakes one worker. Once a fault is latched the
// request is dropped.
func (q *Queue) Enqueue(req material.Request) {
	q.mu.Lock()
	if q.fault != nil {
		q.mu.Unlock()
		drop(req)
		return
	}
	q.pending = append(q.pending, req)
	q.mu.Unlock()
	q.cond.Signal()
}

// Start arms the queue and spawns the workers. The deadline of ctx bounds
// every compile; a ctx without deadline means no limit.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != Idle {
		return ErrQueueRunning
	}
	q.spawn(ctx, true)
	return nil
}

// spawn starts the workers. q.mu must be held.
func (q *Queue) spawn(ctx context.Context, keepRunning bool) {
	q.keepRunning = keepRunning
	q.incomplete = 0
	q.state = Running

	g, gctx := NewSafeGroup(ctx)
	q.group = g
	for range q.workers {
		g.Go(func() error {
			q.work(gctx)
			return nil
		})
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && q.keepRunning {
			q.cond.Wait()
		}
		n := len(q.pending)
		if n == 0 {
			q.mu.Unlock()
			return
		}
		req := q.pending[n-1]
		q.pending[n-1] = material.Request{}
		q.pending = q.pending[:n-1]
		q.mu.Unlock()

		q.compile(ctx, req)
	}
}

// compile runs one request on a worker and records its outcome.
func (q *Queue) compile(ctx context.Context, req material.Request) {
	if ctx.Err() != nil {
		drop(req)
		q.processed.Add(1)
		q.mu.Lock()
		q.incomplete++
		q.mu.Unlock()
		return
	}
	err := req.System.Compile(ctx, req)
	q.processed.Add(1)

	q.mu.Lock()
	if err == nil {
		if req.Entry.Flags == pso.CompilationRequired {
			q.incomplete++
		}
		q.mu.Unlock()
		return
	}
	dropped := q.latch(err)
	q.mu.Unlock()

	for _, r := range dropped {
		drop(r)
	}
}

// latch records err if no fault is latched yet and returns the requests
// it dropped. q.mu must be held.
func (q *Queue) latch(err error) []material.Request {
	if q.fault != nil {
		return nil
	}
	q.fault = err
	dropped := q.pending
	q.pending = nil
	slogger().Error("compile: fault", "err", err, "dropped", len(dropped))
	return dropped
}

// drop leaves req's entry flagged for compilation without compiling it.
func drop(req material.Request) {
	if p, ok := req.System.(material.Postponer); ok {
		p.Postpone(req.Entry)
		return
	}
	req.Entry.Flags = pso.CompilationRequired
}

// StopAndWait lets the workers drain the pending requests and waits for
// them to exit. It returns the number of requests left incomplete and the
// latched fault, if any, then resets the queue to Idle.
func (q *Queue) StopAndWait() (incomplete int, err error) {
	q.mu.Lock()
	if q.state != Running {
		q.mu.Unlock()
		return 0, nil
	}
	q.keepRunning = false
	q.state = Draining
	g := q.group
	q.mu.Unlock()
	q.cond.Broadcast()

	gerr := g.Wait()

	q.mu.Lock()
	var dropped []material.Request
	if gerr != nil {
		dropped = q.latch(gerr)
	}
	incomplete, err = q.incomplete, q.fault
	q.incomplete = 0
	q.fault = nil
	q.group = nil
	q.state = Idle
	q.mu.Unlock()

	for _, r := range dropped {
		drop(r)
	}
	if incomplete > 0 {
		slogger().Warn("compile: pipelines incomplete this frame", "count", incomplete)
	}
	return incomplete, err
}

// RunSerial compiles every pending request on the calling goroutine with
// the deadline of ctx. It stops at the first fault, dropping what is left.
func (q *Queue) RunSerial(ctx context.Context) (incomplete int, err error) {
	q.mu.Lock()
	if q.state != Idle {
		q.mu.Unlock()
		return 0, ErrQueueRunning
	}
	reqs := q.pending
	q.pending = nil
	q.mu.Unlock()

	for i := len(reqs) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			drop(reqs[i])
			q.processed.Add(1)
			incomplete++
			continue
		}
		err := reqs[i].System.Compile(ctx, reqs[i])
		q.processed.Add(1)
		if err != nil {
			slogger().Error("compile: fault", "err", err, "dropped", i)
			for _, r := range reqs[:i] {
				drop(r)
			}
			return incomplete, err
		}
		if reqs[i].Entry.Flags == pso.CompilationRequired {
			incomplete++
		}
	}
	if incomplete > 0 {
		slogger().Warn("compile: pipelines incomplete this frame", "count", incomplete)
	}
	return incomplete, nil
}

// WarmUpParallel compiles every pending request on the workers without a
// deadline and waits for them. It returns the first fault.
func (q *Queue) WarmUpParallel(ctx context.Context) error {
	q.mu.Lock()
	if q.state != Idle {
		q.mu.Unlock()
		return ErrQueueRunning
	}
	q.spawn(context.WithoutCancel(ctx), false)
	q.mu.Unlock()

	_, err := q.StopAndWait()
	return err
}

// WarmUpSerial compiles every pending request on the calling goroutine
// without a deadline.
func (q *Queue) WarmUpSerial(ctx context.Context) error {
	_, err := q.RunSerial(context.WithoutCancel(ctx))
	return err
}

// State returns the lifecycle state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Pending returns the number of queued requests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processed returns the number of requests compiled since New, including
// those that ran out of time.
func (q *Queue) Processed() uint64 { return q.processed.Load() }

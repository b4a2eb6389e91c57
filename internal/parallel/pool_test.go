package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 4, 4},
		{"zero", 0, runtime.GOMAXPROCS(0)},
		{"negative", -5, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			if pool.Workers() != tt.want {
				t.Errorf("Workers() = %d, want %d", pool.Workers(), tt.want)
			}
			if !pool.IsRunning() {
				t.Error("pool should be running after creation")
			}
		})
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	tasks := make([]Task, 100)
	for i := range tasks {
		tasks[i] = func(int) { counter.Add(1) }
	}

	pool.ExecuteAll(tasks)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_WorkerIndexInRange(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var bad atomic.Int32
	tasks := make([]Task, 64)
	for i := range tasks {
		tasks[i] = func(worker int) {
			if worker < 0 || worker >= 3 {
				bad.Add(1)
			}
		}
	}
	pool.ExecuteAll(tasks)

	if bad.Load() != 0 {
		t.Errorf("%d tasks saw an out-of-range worker index", bad.Load())
	}
}

// A worker index is owned by one goroutine at a time, so per-worker
// storage needs no locking.
func TestWorkerPool_PerWorkerStorage(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	slabs := make([][]int, pool.Workers())
	pool.ForEach(1000, func(worker, i int) {
		slabs[worker] = append(slabs[worker], i)
	})

	seen := make([]bool, 1000)
	for _, s := range slabs {
		for _, i := range s {
			if seen[i] {
				t.Fatalf("item %d collected twice", i)
			}
			seen[i] = true
		}
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("item %d not collected", i)
		}
	}
}

func TestWorkerPool_ForEachSmall(t *testing.T) {
	pool := NewWorkerPool(8)
	defer pool.Close()

	var n atomic.Int32
	pool.ForEach(3, func(int, int) { n.Add(1) })
	pool.ForEach(0, func(int, int) { n.Add(100) })

	if n.Load() != 3 {
		t.Errorf("calls = %d, want 3", n.Load())
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool should not be running after Close")
	}

	ran := false
	pool.ExecuteAll([]Task{func(int) { ran = true }})
	if ran {
		t.Error("ExecuteAll after Close should be a no-op")
	}
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var mu sync.Mutex
	workers := make(map[int]bool)
	tasks := make([]Task, 40)
	for i := range tasks {
		slow := i%4 == 0
		tasks[i] = func(worker int) {
			if slow {
				time.Sleep(2 * time.Millisecond)
			}
			mu.Lock()
			workers[worker] = true
			mu.Unlock()
		}
	}
	pool.ExecuteAll(tasks)

	if len(workers) < 2 {
		t.Errorf("only %d workers ran tasks", len(workers))
	}
	if pool.QueuedWork() != 0 {
		t.Errorf("QueuedWork() = %d, want 0", pool.QueuedWork())
	}
}

func BenchmarkWorkerPool_ForEach(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	var sink atomic.Int64
	b.ReportAllocs()
	for b.Loop() {
		pool.ForEach(4096, func(_, i int) {
			if i&1023 == 0 {
				sink.Add(1)
			}
		})
	}
}

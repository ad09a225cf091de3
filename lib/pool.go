package lib

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool is the capability surface the walk needs from a caller-provided worker
// pool: accept a task and run it eventually on some worker. Tasks submitted by
// the walk never block inside Submit and never panic.
type Pool interface {
	Submit(task func())
}

type parallelismKind uint8

const (
	parallelismFixed parallelismKind = iota
	parallelismSerial
	parallelismExisting
)

// Parallelism selects where and how many threads execute read-directory
// tasks. Construct values with Serial, Fixed, or Existing.
type Parallelism struct {
	kind        parallelismKind
	workers     int
	pool        Pool
	busyTimeout time.Duration
}

// Serial performs the walk on the consuming goroutine: directories are read
// lazily, one call stack, no cross-goroutine work.
func Serial() Parallelism {
	return Parallelism{kind: parallelismSerial}
}

// Fixed runs read tasks on a dedicated pool of the given number of workers.
// workers <= 0 resolves an adaptive default sized for readdir-bound work.
func Fixed(workers int) Parallelism {
	return Parallelism{kind: parallelismFixed, workers: workers}
}

// Existing runs read tasks on a caller-provided pool. When busyTimeout is
// positive, iterator construction probes the pool and fails with ErrPoolBusy
// if the probe does not run within the timeout; zero means trust the pool and
// never wait.
func Existing(pool Pool, busyTimeout time.Duration) Parallelism {
	return Parallelism{kind: parallelismExisting, pool: pool, busyTimeout: busyTimeout}
}

// defaultWorkers returns the dedicated-pool default: NumCPU/2 clamped to
// [4, 16]. readdir work is syscall-bound, so kernel throughput, not CPU,
// limits useful parallelism.
func defaultWorkers() int {
	return min(max(runtime.NumCPU()/2, 4), 16)
}

// fixedPool is the dedicated worker pool owned by a walk. The queue is
// unbounded: tasks submit child tasks, and a bounded queue could wedge the
// workers that fill it. join drives the pool to quiescence and shuts the
// workers down.
type fixedPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	pending int
	closed  bool
	group   errgroup.Group
}

func newFixedPool(workers int) *fixedPool {
	pool := &fixedPool{}
	pool.cond = sync.NewCond(&pool.mu)
	for i := 0; i < workers; i++ {
		pool.group.Go(pool.worker)
	}
	return pool
}

// Submit enqueues a task. Submissions after join are dropped.
func (pool *fixedPool) Submit(task func()) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.closed {
		return
	}
	pool.queue = append(pool.queue, task)
	pool.pending++
	pool.cond.Signal()
}

func (pool *fixedPool) worker() error {
	pool.mu.Lock()
	for {
		for len(pool.queue) == 0 && !pool.closed {
			pool.cond.Wait()
		}
		if len(pool.queue) == 0 && pool.closed {
			pool.mu.Unlock()
			return nil
		}
		task := pool.queue[0]
		pool.queue = pool.queue[1:]
		pool.mu.Unlock()

		task()

		pool.mu.Lock()
		pool.pending--
		if pool.pending == 0 {
			// Wake a join waiting for quiescence.
			pool.cond.Broadcast()
		}
	}
}

// join waits until no task is queued or running, then stops the workers and
// waits for them to exit. Safe to call once the walk is finished or stopped;
// stopped tasks complete without scheduling children, so pending drains.
func (pool *fixedPool) join() {
	pool.mu.Lock()
	for pool.pending > 0 {
		pool.cond.Wait()
	}
	pool.closed = true
	pool.cond.Broadcast()
	pool.mu.Unlock()
	pool.group.Wait()
}

// probePool submits a no-op to a caller-provided pool and reports whether it
// ran within the timeout. Used at iterator construction so a wedged pool
// surfaces as ErrPoolBusy instead of a hang on first Next.
func probePool(pool Pool, timeout time.Duration) bool {
	probeRan := make(chan struct{})
	pool.Submit(func() { close(probeRan) })
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-probeRan:
		return true
	case <-timer.C:
		return false
	}
}

// serialQueue holds the read tasks of a serial walk, keyed by index-tree node.
// The iterator runs exactly the task whose slot it is blocked on, so the walk
// degenerates to a lazy depth-first descent on the consuming goroutine.
// Single-goroutine use only; no locking.
type serialQueue[S any] struct {
	tasks map[*treeNode[S]]func()
}

func newSerialQueue[S any]() *serialQueue[S] {
	return &serialQueue[S]{tasks: make(map[*treeNode[S]]func())}
}

func (queue *serialQueue[S]) add(node *treeNode[S], task func()) {
	queue.tasks[node] = task
}

// run executes and removes the task for node, reporting whether one existed.
func (queue *serialQueue[S]) run(node *treeNode[S]) bool {
	task, ok := queue.tasks[node]
	if !ok {
		return false
	}
	delete(queue.tasks, node)
	task()
	return true
}

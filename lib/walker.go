package lib

import (
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ProcessReadDirFunc is the per-directory callback. It runs in the worker that
// read the directory, after enumeration (and sorting, when enabled) and before
// the listing is published. depth and path identify the directory that was
// read. The callback may reorder, drop, or annotate entries, mark entries
// SkipChildren, and mutate state; the mutated state is inherited by this
// directory's descendants and recorded on every entry of the listing.
//
// Callbacks of different directories may run concurrently and must not depend
// on one another's side effects beyond the per-subtree state flow.
type ProcessReadDirFunc[S any] func(depth int, path string, state *S, entries *[]*Entry[S])

// Walker builds a recursive directory walk. Configure it with the chainable
// setters, then obtain the entry stream with Iter or Entries.
//
// Reads happen in parallel across a worker pool while the stream stays
// deterministic and depth-first: each worker publishes its listing into an
// ordered index tree, and the iterator blocks only when the next slot in
// depth-first order has not been filled yet.
type Walker[S any] struct {
	root        string
	sortEntries bool
	skipHidden  bool
	followLinks bool
	minDepth    int
	maxDepth    int // < 0 means unbounded
	parallelism Parallelism
	rootState   S
	process     ProcessReadDirFunc[S]
	logger      *zap.Logger
}

// NewWalker returns a walker rooted at root with defaults: no sorting, hidden
// entries kept, symlinks not followed, unbounded depth, and a dedicated worker
// pool of adaptive size. S is the per-walk user state type; it flows top-down,
// copied at each descent.
func NewWalker[S any](root string) *Walker[S] {
	return &Walker[S]{
		root:        root,
		maxDepth:    -1,
		parallelism: Fixed(0),
		logger:      zap.NewNop(),
	}
}

// Sort enables sorting each directory's entries byte-wise by raw name before
// the callback runs. Entries with equal names keep their readdir order.
func (w *Walker[S]) Sort(sort bool) *Walker[S] { w.sortEntries = sort; return w }

// SkipHidden filters out entries whose name begins with a dot.
func (w *Walker[S]) SkipHidden(skip bool) *Walker[S] { w.skipHidden = skip; return w }

// FollowLinks descends into directory-typed symlinks after an ancestor-cycle
// check. Symlinks that point back into an ancestor are yielded but not
// descended into.
func (w *Walker[S]) FollowLinks(follow bool) *Walker[S] { w.followLinks = follow; return w }

// MinDepth suppresses entries shallower than depth. The traversal itself is
// unaffected; only the yielded stream is filtered.
func (w *Walker[S]) MinDepth(depth int) *Walker[S] { w.minDepth = depth; return w }

// MaxDepth bounds the walk: no entry deeper than depth is yielded, and no
// directory at that depth is descended into. Negative means unbounded.
func (w *Walker[S]) MaxDepth(depth int) *Walker[S] { w.maxDepth = depth; return w }

// Parallelism selects the execution strategy: Serial, Fixed, or Existing.
func (w *Walker[S]) Parallelism(parallelism Parallelism) *Walker[S] {
	w.parallelism = parallelism
	return w
}

// RootState sets the initial user state passed into the root directory's
// callback. The root entry carries this value unmodified.
func (w *Walker[S]) RootState(state S) *Walker[S] { w.rootState = state; return w }

// ProcessReadDir sets the per-directory callback.
func (w *Walker[S]) ProcessReadDir(process ProcessReadDirFunc[S]) *Walker[S] {
	w.process = process
	return w
}

// Logger sets a logger for debug-level walk events. Defaults to a nop logger.
func (w *Walker[S]) Logger(logger *zap.Logger) *Walker[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	w.logger = logger
	return w
}

// walkState is the shared object graph of one running walk: the effective
// options, the index tree, and the pool handle. There is no global state; the
// walk is fully contained here.
type walkState[S any] struct {
	sortEntries bool
	skipHidden  bool
	followLinks bool
	maxDepth    int
	process     ProcessReadDirFunc[S]
	logger      *zap.Logger

	tree   *indexTree[S]
	pool   Pool
	fixed  *fixedPool
	serial *serialQueue[S]
	paths  *PathPool

	stop       atomic.Bool
	finishOnce sync.Once
}

// submit schedules a read task: keyed for lazy execution in serial mode,
// fire-and-forget onto the pool otherwise.
func (walk *walkState[S]) submit(task *readDirTask[S]) {
	if walk.serial != nil {
		walk.serial.add(task.node, task.run)
		return
	}
	walk.pool.Submit(task.run)
}

// dirFor returns the shared path handle for one directory, interned so equal
// paths share storage.
func (walk *walkState[S]) dirFor(path string) *dirPath {
	return &dirPath{path: walk.paths.Intern(path)}
}

// shutdown signals cancellation, wakes a parked iterator, and drives an owned
// pool to quiescence. Idempotent; runs on end-of-stream and on Close.
func (walk *walkState[S]) shutdown() {
	walk.finishOnce.Do(func() {
		walk.stop.Store(true)
		if walk.tree != nil {
			walk.tree.stop()
		}
		if walk.fixed != nil {
			walk.fixed.join()
		}
		walk.logger.Debug("walk finished")
	})
}

// Iter starts the walk and returns the entry stream. Construction fails only
// on an empty root, a nil caller-provided pool, or a caller-provided pool that
// did not accept work within its busy timeout (ErrPoolBusy). A root that
// cannot be stat'ed does not fail construction: the iterator yields a single
// synthetic error entry and ends.
func (w *Walker[S]) Iter() (*Iter[S], error) {
	if w.root == "" {
		return nil, errEmptyRoot
	}
	maxDepth := w.maxDepth
	if maxDepth < 0 {
		maxDepth = math.MaxInt
	}
	minDepth := max(w.minDepth, 0)

	rootEntry := &Entry[S]{
		// The root entry's Name is the root path as given, so Path() returns
		// it verbatim; it is the one entry whose Name may contain separators.
		Name:   w.root,
		parent: &dirPath{},
		State:  w.rootState,
	}

	rootInfo, err := os.Stat(w.root)
	if err != nil {
		rootEntry.Err = newPathError(0, w.root, err)
		return newRootOnlyIter(rootEntry, minDepth), nil
	}
	rootEntry.Type = fileTypeFromMode(rootInfo.Mode())
	if !rootInfo.IsDir() || maxDepth == 0 {
		return newRootOnlyIter(rootEntry, minDepth), nil
	}

	walk := &walkState[S]{
		sortEntries: w.sortEntries,
		skipHidden:  w.skipHidden,
		followLinks: w.followLinks,
		maxDepth:    maxDepth,
		process:     w.process,
		logger:      w.logger,
		tree:        newIndexTree[S](),
		paths:       NewPathPool(),
	}

	parallelism := w.parallelism
	if maxDepth == 1 {
		// A single directory will ever be read; nothing to parallelize.
		parallelism = Serial()
	}
	switch parallelism.kind {
	case parallelismSerial:
		walk.serial = newSerialQueue[S]()
		walk.tree.runSerial = walk.serial.run
	case parallelismFixed:
		workers := parallelism.workers
		if workers <= 0 {
			workers = defaultWorkers()
		}
		walk.fixed = newFixedPool(workers)
		walk.pool = walk.fixed
	case parallelismExisting:
		if parallelism.pool == nil {
			return nil, errors.New("existing parallelism requires a pool")
		}
		if parallelism.busyTimeout > 0 && !probePool(parallelism.pool, parallelism.busyTimeout) {
			return nil, newBusyError()
		}
		walk.pool = parallelism.pool
	}

	w.logger.Debug("starting walk",
		zap.String("root", w.root),
		zap.Bool("sort", w.sortEntries),
		zap.Bool("follow_links", w.followLinks),
	)

	rootEntry.hasChild = true
	walk.submit(&readDirTask[S]{
		walk:  walk,
		node:  walk.tree.root,
		dir:   walk.dirFor(w.root),
		depth: 1,
		state: w.rootState,
	})

	return newIter(walk, rootEntry, minDepth), nil
}

// Entries is the infallible form of Iter: a construction error is emitted as
// the first (and only) element of the stream. Prefer Iter.
func (w *Walker[S]) Entries() *Iter[S] {
	iter, err := w.Iter()
	if err != nil {
		errorEntry := &Entry[S]{Name: w.root, parent: &dirPath{}, Err: err}
		return newRootOnlyIter(errorEntry, 0)
	}
	return iter
}

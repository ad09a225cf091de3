package lib

// Iter streams the walk's entries in deterministic depth-first pre-order. It
// holds one cursor over the index tree: a stack of frames, root at the bottom,
// each tracking how far its listing has been streamed and which child slot
// comes next. Next blocks only when the next slot in depth-first order has not
// been published yet.
//
// Iter is single-consumer: Next must not be called concurrently. Close may be
// called from any goroutine to cancel an in-progress walk.
type Iter[S any] struct {
	walk      *walkState[S] // nil when the stream is just the root entry
	rootEntry *Entry[S]
	minDepth  int

	rootDelivered bool
	stack         []iterFrame[S]
	closed        bool
	finished      bool
}

// iterFrame is one level of the depth-first cursor.
type iterFrame[S any] struct {
	node      *treeNode[S]
	entries   []*Entry[S]
	entryIdx  int
	nextChild int
}

func newIter[S any](walk *walkState[S], rootEntry *Entry[S], minDepth int) *Iter[S] {
	return &Iter[S]{walk: walk, rootEntry: rootEntry, minDepth: minDepth}
}

// newRootOnlyIter returns an iterator whose stream is exactly the root entry:
// a file root, a root that failed to stat, a zero max depth, or a pool-busy
// error surfaced through Entries.
func newRootOnlyIter[S any](rootEntry *Entry[S], minDepth int) *Iter[S] {
	return &Iter[S]{rootEntry: rootEntry, minDepth: minDepth}
}

// Next returns the next entry of the stream, or false when the root's subtree
// has been fully drained or the iterator was closed. Entries outside the
// configured depth bounds are skipped; entries carrying a per-entry error are
// always yielded.
func (iter *Iter[S]) Next() (*Entry[S], bool) {
	if iter.closed || iter.finished {
		return nil, false
	}

	if !iter.rootDelivered {
		iter.rootDelivered = true
		if iter.walk != nil {
			// The root entry's descent: block for the root listing so a root
			// read failure lands on the root entry before it is yielded.
			listing, err, ok := iter.walk.tree.awaitFilled(iter.walk.tree.root)
			if !ok {
				iter.finish()
				return nil, false
			}
			if err != nil {
				iter.rootEntry.ReadChildrenErr = err
			} else {
				iter.stack = append(iter.stack, iterFrame[S]{node: iter.walk.tree.root, entries: listing})
			}
		}
		if iter.yieldable(iter.rootEntry) {
			return iter.rootEntry, true
		}
	}

	for {
		if len(iter.stack) == 0 {
			iter.finish()
			return nil, false
		}
		top := len(iter.stack) - 1
		frame := &iter.stack[top]

		if frame.entryIdx >= len(frame.entries) {
			// Listing exhausted and every child frame already popped below us:
			// retire the node and resume the parent frame.
			node := frame.node
			iter.stack = iter.stack[:top]
			iter.walk.tree.retire(node)
			continue
		}

		entry := frame.entries[frame.entryIdx]
		frame.entryIdx++

		if entry.hasChild {
			child := frame.node.children[frame.nextChild]
			frame.nextChild++
			listing, err, ok := iter.walk.tree.awaitFilled(child)
			if !ok {
				iter.finish()
				return nil, false
			}
			if err != nil {
				entry.ReadChildrenErr = err
				iter.walk.tree.retire(child)
			} else {
				iter.stack = append(iter.stack, iterFrame[S]{node: child, entries: listing})
			}
		}

		if iter.yieldable(entry) {
			return entry, true
		}
	}
}

// yieldable applies the depth bounds; error records always pass through.
func (iter *Iter[S]) yieldable(entry *Entry[S]) bool {
	return entry.Err != nil || entry.Depth >= iter.minDepth
}

// Close cancels the walk: in-flight reads finish but schedule no children, the
// owned pool is driven to quiescence, and subsequent Next calls return false.
// Closing a drained iterator is a no-op.
func (iter *Iter[S]) Close() {
	if iter.closed {
		return
	}
	iter.closed = true
	if iter.walk != nil {
		iter.walk.shutdown()
	}
}

func (iter *Iter[S]) finish() {
	iter.finished = true
	if iter.walk != nil {
		iter.walk.shutdown()
	}
}

package lib

import (
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// readDirTask reads one directory: it enumerates children into entries, runs
// the user callback, publishes the listing into its index-tree slot, and
// spawns one task per descending child. Each task writes only to the slot it
// was given; children are inserted through the tree's synchronized
// scheduleChild, so tasks are data-race-free by construction.
type readDirTask[S any] struct {
	walk *walkState[S]
	node *treeNode[S]
	dir  *dirPath
	// depth of the entries this task produces (directory depth + 1).
	depth int
	state S
	// ancestors holds canonicalized paths of the directories above this one;
	// populated only when following symlinks.
	ancestors []string
}

func (task *readDirTask[S]) run() {
	walk := task.walk
	dirDepth := task.depth - 1

	if walk.stop.Load() {
		// The walk is being torn down; fill the slot so nothing can park on it.
		walk.tree.publish(task.node, nil, nil)
		return
	}

	raw, readErr := readDirEntries(task.dir.path)
	if readErr != nil && len(raw) == 0 {
		walk.logger.Debug("read dir failed", zap.String("path", task.dir.path), zap.Error(readErr))
		walk.tree.publish(task.node, nil, newPathError(dirDepth, task.dir.path, readErr))
		return
	}

	entries := make([]*Entry[S], 0, len(raw))
	for _, record := range raw {
		if walk.skipHidden && strings.HasPrefix(record.name, ".") {
			continue
		}
		entries = append(entries, &Entry[S]{
			Name:       record.name,
			Depth:      task.depth,
			Type:       record.ftype,
			FollowLink: record.ftype == TypeSymlink && walk.followLinks,
			parent:     task.dir,
		})
	}

	if walk.sortEntries {
		// Stable, so equal names keep their readdir order.
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
	}

	state := task.state
	if walk.process != nil {
		walk.process(dirDepth, task.dir.path, &state, &entries)
	}

	if readErr != nil {
		// Enumeration failed partway: the partial entries stand, and an error
		// record for the directory closes out the listing.
		walk.logger.Debug("partial read dir", zap.String("path", task.dir.path), zap.Error(readErr))
		entries = append(entries, &Entry[S]{
			Name:   task.dir.path,
			Depth:  dirDepth,
			Type:   TypeDir,
			parent: &dirPath{},
			Err:    newPathError(dirDepth, task.dir.path, readErr),
		})
	}

	childTasks := task.scheduleChildren(entries, state)

	for _, entry := range entries {
		entry.State = state
	}
	walk.tree.publish(task.node, entries, nil)

	for _, childTask := range childTasks {
		walk.submit(childTask)
	}
}

// scheduleChildren walks the post-callback entries, allocates an index-tree
// slot for each descending child in left-to-right order, and builds the child
// tasks. Cancellation is checked once on entry: a task that observes it
// completes its listing but schedules nothing.
func (task *readDirTask[S]) scheduleChildren(entries []*Entry[S], state S) []*readDirTask[S] {
	walk := task.walk
	if walk.stop.Load() || task.depth >= walk.maxDepth {
		return nil
	}

	var childAncestors []string
	if walk.followLinks {
		childAncestors = append(slices.Clip(task.ancestors), canonicalDir(task.dir.path))
	}

	var childTasks []*readDirTask[S]
	ordinal := 0
	for _, entry := range entries {
		if entry.Err != nil || entry.SkipChildren {
			continue
		}
		if entry.Type == TypeUnknown {
			entry.Lstat()
		}
		descend := false
		switch entry.Type {
		case TypeDir:
			descend = true
		case TypeSymlink:
			if !walk.followLinks {
				break
			}
			resolution, err := resolveSymlink(entry.Path(), childAncestors)
			if err != nil {
				entry.Err = newPathError(entry.Depth, entry.Path(), err)
				break
			}
			if resolution.cycle {
				entry.Err = newLoopError(entry.Depth, resolution.ancestor, entry.Path())
				break
			}
			if resolution.isDir {
				descend = true
			}
		}
		if !descend {
			continue
		}
		child := walk.tree.scheduleChild(task.node, ordinal)
		entry.hasChild = true
		ordinal++
		childTasks = append(childTasks, &readDirTask[S]{
			walk:      walk,
			node:      child,
			dir:       walk.dirFor(joinPath(task.dir.path, entry.Name)),
			depth:     task.depth + 1,
			state:     state,
			ancestors: childAncestors,
		})
	}
	return childTasks
}

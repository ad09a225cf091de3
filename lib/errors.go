package lib

import (
	"errors"
	"fmt"
)

// WalkError is an error produced while walking a tree. It wraps the underlying
// I/O error with the depth and path at which it occurred, or records a symlink
// loop (no underlying I/O error in that case), or reports a busy caller-provided
// pool at iterator construction time.
type WalkError struct {
	depth    int
	path     string
	ancestor string // set only for symlink loops
	err      error  // nil for loops and pool-busy
	busy     bool
}

// ErrPoolBusy matches walk errors caused by a caller-provided pool that did not
// accept work within the configured busy timeout. Use errors.Is.
var ErrPoolBusy = &WalkError{busy: true}

func newPathError(depth int, path string, err error) *WalkError {
	return &WalkError{depth: depth, path: path, err: err}
}

func newLoopError(depth int, ancestor, child string) *WalkError {
	return &WalkError{depth: depth, path: child, ancestor: ancestor}
}

func newBusyError() *WalkError {
	return &WalkError{busy: true}
}

func (walkError *WalkError) Error() string {
	switch {
	case walkError.busy:
		return "worker pool is busy"
	case walkError.ancestor != "":
		return fmt.Sprintf("filesystem loop: %s points to ancestor %s", walkError.path, walkError.ancestor)
	case walkError.path != "":
		return fmt.Sprintf("%s: %v", walkError.path, walkError.err)
	default:
		return walkError.err.Error()
	}
}

// Unwrap returns the underlying I/O error, or nil for loop and pool-busy errors.
func (walkError *WalkError) Unwrap() error {
	return walkError.err
}

// Is reports pool-busy equivalence so callers can write errors.Is(err, ErrPoolBusy).
func (walkError *WalkError) Is(target error) bool {
	other, ok := target.(*WalkError)
	if !ok {
		return false
	}
	return walkError.busy && other.busy
}

// Depth returns the depth relative to the walk root at which the error occurred.
func (walkError *WalkError) Depth() int { return walkError.depth }

// Path returns the path associated with the error, if any.
func (walkError *WalkError) Path() string { return walkError.path }

// LoopAncestor returns the ancestor directory a symlink pointed back to, or ""
// if the error is not a loop.
func (walkError *WalkError) LoopAncestor() string { return walkError.ancestor }

// IsBusy reports whether the error was caused by a busy caller-provided pool.
func (walkError *WalkError) IsBusy() bool { return walkError.busy }

var errEmptyRoot = errors.New("root path is empty")

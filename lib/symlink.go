package lib

import (
	"os"
	"path/filepath"
)

// linkResolution is the outcome of resolving one symlink entry: the target's
// metadata, whether the target is a directory, and whether the canonical
// target equals one of the walk's ancestor directories (a cycle). Descent
// proceeds only when isDir is true and cycle is false.
type linkResolution struct {
	info     os.FileInfo
	isDir    bool
	cycle    bool
	ancestor string
}

// resolveSymlink stats the symlink target at path and checks the canonical
// target against the ancestor set. ancestors holds the canonicalized paths of
// every directory from the walk root down to and including the symlink's
// parent.
func resolveSymlink(path string, ancestors []string) (linkResolution, error) {
	info, err := os.Stat(path)
	if err != nil {
		return linkResolution{}, err
	}
	resolution := linkResolution{info: info, isDir: info.IsDir()}
	if !resolution.isDir {
		return resolution, nil
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return linkResolution{}, err
	}
	for _, ancestor := range ancestors {
		if ancestor == target {
			resolution.cycle = true
			resolution.ancestor = ancestor
			break
		}
	}
	return resolution, nil
}

// canonicalDir canonicalizes a directory path for the ancestor set. Falls back
// to the cleaned absolute path when resolution fails, so a racing rename does
// not abort the walk.
func canonicalDir(path string) string {
	canonical, err := filepath.EvalSymlinks(path)
	if err == nil {
		return canonical
	}
	absolute, err := filepath.Abs(path)
	if err == nil {
		return filepath.Clean(absolute)
	}
	return filepath.Clean(path)
}

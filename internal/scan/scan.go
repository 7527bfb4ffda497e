// Package scan discovers candidate files under a source directory.
//
// Traversal uses an explicit worklist rather than recursion, visits entries
// in sorted order for reproducible runs, and tracks resolved directory
// paths to break symlink cycles when link-following is enabled.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
)

// Options controls traversal behavior.
type Options struct {
	// Recursive descends into subdirectories. When false only the root's
	// direct children are visited.
	Recursive bool
	// MaxDepth bounds how many levels below the root are visited; 0 means
	// unlimited. The root's direct children sit at depth 1.
	MaxDepth int
	// FollowSymlinks resolves and traverses symbolic links instead of
	// skipping them.
	FollowSymlinks bool
}

type frame struct {
	dir   string
	depth int
}

// Walk visits every regular file under root in a deterministic depth-first
// order: each directory's files first, then its subdirectories
// alphabetically. fn receives absolute paths; an error from fn aborts the
// walk.
func Walk(root string, opts Options, fn func(path string) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan root %s is not a directory", absRoot)
	}

	visited := make(map[string]struct{})
	if opts.FollowSymlinks {
		if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
			visited[resolved] = struct{}{}
		}
	}

	stack := []frame{{dir: absRoot, depth: 0}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(current.dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", current.dir, err)
		}

		descend := opts.Recursive && (opts.MaxDepth == 0 || current.depth+1 < opts.MaxDepth)

		var subdirs []frame
		for _, entry := range entries {
			path := filepath.Join(current.dir, entry.Name())

			if entry.Type()&os.ModeSymlink != 0 {
				if !opts.FollowSymlinks {
					continue
				}
				target, err := os.Stat(path)
				if err != nil {
					// Dangling link.
					continue
				}
				if target.IsDir() {
					if descend && markVisited(visited, path) {
						subdirs = append(subdirs, frame{dir: path, depth: current.depth + 1})
					}
					continue
				}
				if err := fn(path); err != nil {
					return err
				}
				continue
			}

			if entry.IsDir() {
				if descend && (!opts.FollowSymlinks || markVisited(visited, path)) {
					subdirs = append(subdirs, frame{dir: path, depth: current.depth + 1})
				}
				continue
			}

			if !entry.Type().IsRegular() {
				continue
			}
			if err := fn(path); err != nil {
				return err
			}
		}

		// Pushed in reverse so the stack pops subdirectories alphabetically.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

// markVisited records the resolved identity of dir and reports whether it
// was seen for the first time.
func markVisited(visited map[string]struct{}, dir string) bool {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	if _, seen := visited[resolved]; seen {
		return false
	}
	visited[resolved] = struct{}{}
	return true
}

// Collect runs Walk and gathers the visited file paths.
func Collect(root string, opts Options) ([]string, error) {
	var paths []string
	err := Walk(root, opts, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

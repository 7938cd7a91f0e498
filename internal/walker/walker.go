// Package walker traverses a directory tree while honouring explicit ignore
// globs and .gitignore files, handing each directory's visible files to a
// callback that threads a state value down to the directory's children.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/jakzo/things/internal/core"
)

const gitignoreFile = ".gitignore"

// DirFunc is called once per visited directory with the state produced by
// the parent directory, the directory path relative to the walk root and
// the names of the regular files it contains that are not ignored. The
// returned state is passed to every child directory.
type DirFunc[S any] func(ctx context.Context, state S, dir string, filenames []string) (S, error)

// Options configures a walk.
type Options[S any] struct {
	// RootDir anchors ignore rules and relative paths.
	RootDir string

	// StartDir is the first directory visited, relative to RootDir.
	// Empty means RootDir itself.
	StartDir string

	// State is handed to the callback of StartDir.
	State S

	// IgnoreGlobs use gitignore syntax and are anchored at RootDir.
	IgnoreGlobs []string

	// IgnoreGitignored also applies every .gitignore between RootDir and
	// the visited directory.
	IgnoreGitignored bool
}

// Walk visits StartDir and all of its non-ignored descendants; an ignored
// StartDir visits nothing. Sibling
// directories are walked concurrently; a directory's children are only
// visited after its callback returned. The first error cancels the walk
// and is returned.
func Walk[S any](ctx context.Context, fsys core.FileSystem, opts Options[S], onDir DirFunc[S]) error {
	w := &walk[S]{fs: fsys, root: opts.RootDir, gitignore: opts.IgnoreGitignored, onDir: onDir}

	patterns := make([]gitignore.Pattern, 0, len(opts.IgnoreGlobs))
	for _, glob := range opts.IgnoreGlobs {
		patterns = append(patterns, gitignore.ParsePattern(glob, nil))
	}

	start := toSlash(opts.StartDir)
	if w.gitignore {
		var err error
		// The start directory's own .gitignore is read when it is listed.
		for _, dir := range ancestors(start) {
			patterns, err = w.loadGitignore(ctx, dir, patterns)
			if err != nil {
				return err
			}
		}
	}

	if start != "" && gitignore.NewMatcher(patterns).Match(components(start), true) {
		return nil
	}
	return w.visit(ctx, start, opts.State, patterns)
}

type walk[S any] struct {
	fs        core.FileSystem
	root      string
	gitignore bool
	onDir     DirFunc[S]
}

func (w *walk[S]) visit(ctx context.Context, dir string, state S, patterns []gitignore.Pattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absDir := w.abs(dir)
	entries, err := w.fs.ReadDir(ctx, absDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", absDir, err)
	}

	if w.gitignore && hasFile(entries, gitignoreFile) {
		patterns, err = w.loadGitignore(ctx, dir, patterns)
		if err != nil {
			return err
		}
	}
	matcher := gitignore.NewMatcher(patterns)
	base := components(dir)

	var filenames, subdirs []string
	for _, entry := range entries {
		isDir := entry.IsDir()
		isFile := entry.Type().IsRegular()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := w.fs.Stat(ctx, filepath.Join(absDir, entry.Name()))
			if err != nil {
				return fmt.Errorf("failed to stat %q: %w", filepath.Join(absDir, entry.Name()), err)
			}
			isDir, isFile = info.IsDir(), info.Mode().IsRegular()
		}
		if !isDir && !isFile {
			continue
		}
		if matcher.Match(append(base[:len(base):len(base)], entry.Name()), isDir) {
			continue
		}
		if isDir {
			subdirs = append(subdirs, path.Join(dir, entry.Name()))
		} else {
			filenames = append(filenames, entry.Name())
		}
	}

	next, err := w.onDir(ctx, state, dir, filenames)
	if err != nil {
		return err
	}

	if len(subdirs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range subdirs {
		g.Go(func() error {
			return w.visit(gctx, sub, next, patterns)
		})
	}
	return g.Wait()
}

// loadGitignore returns patterns extended by the rules of dir/.gitignore.
// The input slice is never modified since sibling walks share it.
func (w *walk[S]) loadGitignore(ctx context.Context, dir string, patterns []gitignore.Pattern) ([]gitignore.Pattern, error) {
	file := filepath.Join(w.abs(dir), gitignoreFile)
	data, err := w.fs.ReadFile(ctx, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return patterns, nil
		}
		return nil, fmt.Errorf("failed to read %q: %w", file, err)
	}

	domain := components(dir)
	out := append([]gitignore.Pattern(nil), patterns...)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, gitignore.ParsePattern(line, domain))
	}
	return out, nil
}

func (w *walk[S]) abs(dir string) string {
	if dir == "" {
		return w.root
	}
	return filepath.Join(w.root, filepath.FromSlash(dir))
}

func hasFile(entries []fs.DirEntry, name string) bool {
	for _, e := range entries {
		if e.Name() == name && !e.IsDir() {
			return true
		}
	}
	return false
}

// ancestors lists the directories from the root (inclusive) down to dir
// (exclusive), as slash paths.
func ancestors(dir string) []string {
	out := []string{""}
	parts := components(dir)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	if len(parts) == 0 {
		return nil
	}
	return out
}

func components(dir string) []string {
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

func toSlash(dir string) string {
	dir = filepath.ToSlash(filepath.Clean(dir))
	if dir == "." {
		return ""
	}
	return strings.TrimPrefix(dir, "./")
}

// Package runner executes a shell command inside prepared package
// directories.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/core"
)

// Runner runs commands with the built-in POSIX shell interpreter, so the
// same command line works on every platform.
type Runner struct {
	FS     core.FileSystem
	Stdout io.Writer
	Stderr io.Writer

	// Env is the environment of the command; nil means os.Environ().
	Env []string
}

// Result lists what RunInPackages did.
type Result struct {
	// Ran holds the names of the packages the command ran in.
	Ran []string

	// Unmatched holds the filters no package matched.
	Unmatched []string
}

// ExitError reports a command that exited with a non-zero status.
type ExitError struct {
	Package string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed in %s with exit code %d", e.Package, e.Code)
}

type target struct {
	name string
	dir  string
}

// RunInPackages runs command in every directory of outputDir holding a
// package.json whose name matches one of filters, in name order. A filter
// is an exact name or a doublestar glob such as "@scope/*". No filters
// selects every package. The first failing package stops the run.
func (r *Runner) RunInPackages(ctx context.Context, outputDir, command string, filters []string) (*Result, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	for _, f := range filters {
		if !doublestar.ValidatePattern(f) {
			return nil, fmt.Errorf("invalid package filter %q", f)
		}
	}

	targets, err := r.discover(ctx, outputDir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	used := make([]bool, len(filters))
	for _, t := range targets {
		if !matches(t.name, filters, used) {
			continue
		}
		console.Info("running command", "package", t.name)
		if err := r.run(ctx, t, prog); err != nil {
			return res, err
		}
		res.Ran = append(res.Ran, t.name)
	}

	for i, f := range filters {
		if !used[i] {
			console.Warn("no package matched filter", "filter", f)
			res.Unmatched = append(res.Unmatched, f)
		}
	}
	return res, nil
}

// discover returns the packages of outputDir sorted by name. Directories
// without a readable package.json are skipped.
func (r *Runner) discover(ctx context.Context, outputDir string) ([]target, error) {
	entries, err := r.FS.ReadDir(ctx, outputDir)
	if err != nil {
		return nil, &core.ConfigError{Path: outputDir, Reason: "cannot read output directory", Err: err}
	}
	var targets []target
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(outputDir, e.Name())
		data, err := r.FS.ReadFile(ctx, filepath.Join(dir, "package.json"))
		if err != nil {
			console.Debug("skipping directory without package.json", "dir", dir)
			continue
		}
		name := gjson.GetBytes(data, "name").String()
		if name == "" {
			console.Debug("skipping package without a name", "dir", dir)
			continue
		}
		targets = append(targets, target{name: name, dir: dir})
	}
	slices.SortFunc(targets, func(a, b target) int { return strings.Compare(a.name, b.name) })
	return targets, nil
}

func matches(name string, filters []string, used []bool) bool {
	if len(filters) == 0 {
		return true
	}
	matched := false
	for i, f := range filters {
		if f == name {
			used[i], matched = true, true
			continue
		}
		if ok, _ := doublestar.Match(f, name); ok {
			used[i], matched = true, true
		}
	}
	return matched
}

func (r *Runner) run(ctx context.Context, t target, prog *syntax.File) error {
	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	sh, err := interp.New(
		interp.Dir(t.dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, r.Stdout, r.Stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter for %s: %w", t.name, err)
	}
	if err := sh.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Package: t.name, Code: int(status)}
		}
		return fmt.Errorf("command failed in %s: %w", t.name, err)
	}
	return nil
}

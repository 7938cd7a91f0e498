package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/imports"
	"github.com/jakzo/things/internal/monorepo"
	"github.com/jakzo/things/internal/walker"
)

const binDir = "bin"

// copyBuildFiles walks the build directory and copies every file of a
// public package into the temporary publish tree, rewriting cross-package
// imports and recording dependency edges on the way.
func (r *run) copyBuildFiles(ctx context.Context) error {
	layout := r.graph.Layout
	buildDir := layout.BuildDir
	if buildDir == "" {
		buildDir = layout.SrcDir
	}
	startDir, err := relInside(layout.RootDir, buildDir)
	if err != nil {
		return err
	}

	// Ignore rules must match discovery, or the files of an undiscovered
	// package land in its enclosing package.
	opts := walker.Options[*monorepo.PackageInfo]{
		RootDir:          layout.RootDir,
		StartDir:         startDir,
		IgnoreGlobs:      r.ignoreGlobs,
		IgnoreGitignored: r.opts.IgnoreGitignored,
	}
	return walker.Walk(ctx, r.fs, opts, func(ctx context.Context, parent *monorepo.PackageInfo, dir string, filenames []string) (*monorepo.PackageInfo, error) {
		absDir := filepath.Join(layout.RootDir, filepath.FromSlash(dir))
		info := parent
		if rel, err := filepath.Rel(buildDir, absDir); err == nil {
			if owner, ok := r.graph.Get(filepath.ToSlash(rel)); ok && !owner.IsRoot() {
				info = owner
			}
		}
		if info == nil || info.Private() {
			return info, nil
		}
		info.MarkFound()
		if err := r.copyDir(ctx, info, absDir, filenames); err != nil {
			return nil, err
		}
		return info, nil
	})
}

func (r *run) copyDir(ctx context.Context, info *monorepo.PackageInfo, absDir string, filenames []string) error {
	pkgBuildPath := info.Package.BuildPath()
	isBinDir := absDir == filepath.Join(pkgBuildPath, binDir)

	// Maps go last so rewritten files can claim them first.
	names := slices.Clone(filenames)
	slices.SortStableFunc(names, func(a, b string) int {
		return boolToInt(strings.HasSuffix(a, ".map")) - boolToInt(strings.HasSuffix(b, ".map"))
	})

	for _, name := range names {
		src := filepath.Join(absDir, name)
		rel, err := filepath.Rel(pkgBuildPath, src)
		if err != nil {
			return fmt.Errorf("failed to locate %s in package %s: %w", src, info.Name(), err)
		}
		dst := filepath.Join(r.tempDir, info.PublishDirName, rel)

		switch {
		case strings.HasSuffix(name, ".map"):
			err = r.copier.CopyMap(ctx, src, dst)
		case !imports.IsSourceFile(name):
			err = r.copier.CopyFile(ctx, src, dst)
		default:
			if isBinDir {
				info.AddBinary(monorepo.BinaryName(name), path.Join(binDir, name))
			}
			err = r.copySource(ctx, info, src, dst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) copySource(ctx context.Context, info *monorepo.PackageInfo, src, dst string) error {
	code, err := r.fs.ReadFile(ctx, src)
	if err != nil {
		return classifyFileCopyError(err, src, dst, "open")
	}
	found, warnings := imports.Scan(src, code, r.opts.ImportResolver)
	r.diags.Add(warnings...)

	out, err := imports.RewriteFile(ctx, r.fs, src, code, found, r.collector.replacer(info, src))
	if err != nil {
		return err
	}
	if out == nil {
		return r.copier.WriteFile(ctx, src, dst, code)
	}
	r.diags.Add(out.Warnings...)
	console.Debug("rewrote imports", "file", src)

	if err := r.copier.WriteFile(ctx, src, dst, out.Code); err != nil {
		return err
	}
	if out.Map != nil {
		mapDst := filepath.Join(filepath.Dir(dst), out.Map.RelPath)
		pkgDir := filepath.Join(r.tempDir, info.PublishDirName)
		if rel, err := filepath.Rel(pkgDir, mapDst); err != nil || !filepath.IsLocal(rel) {
			r.diags.Add(&core.SourceMapError{File: src, Err: fmt.Errorf("map %s is outside package %s", out.Map.RelPath, info.Name())})
			return nil
		}
		if err := r.copier.WriteMap(ctx, src, mapDst, out.Map.Data); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

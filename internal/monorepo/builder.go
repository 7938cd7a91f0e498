package monorepo

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/pkgjson"
	"github.com/jakzo/things/internal/walker"
)

const manifestFile = "package.json"

// DefaultIgnoreGlobs are never walked.
var DefaultIgnoreGlobs = []string{"node_modules", ".git"}

// BuilderOptions tunes package discovery.
type BuilderOptions struct {
	IgnoreGlobs      []string
	IgnoreGitignored bool
}

// Builder discovers the package tree of a Layout.
type Builder struct {
	fs     core.FileSystem
	layout *Layout
	opts   BuilderOptions
}

// NewBuilder creates a Builder.
func NewBuilder(fs core.FileSystem, layout *Layout, opts BuilderOptions) *Builder {
	return &Builder{fs: fs, layout: layout, opts: opts}
}

// Build reads the root package.json and walks the source directory. Every
// directory holding a package.json becomes a package whose parent is the
// nearest enclosing package.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	rootDoc, err := ReadManifest(ctx, b.fs, b.layout.RootDir)
	if err != nil {
		return nil, err
	}
	root := newPackageInfo(RootKey, NewPackage(b.layout, ""), rootDoc, nil)
	graph := NewGraph(b.layout, root)

	startDir, err := filepath.Rel(b.layout.RootDir, b.layout.SrcDir)
	if err != nil || startDir == ".." || strings.HasPrefix(startDir, ".."+string(filepath.Separator)) {
		return nil, &core.ConfigError{Path: b.layout.SrcDir, Reason: "source directory must be inside the root directory"}
	}

	opts := walker.Options[*PackageInfo]{
		RootDir:          b.layout.RootDir,
		StartDir:         startDir,
		State:            root,
		IgnoreGlobs:      append(slices.Clone(DefaultIgnoreGlobs), b.opts.IgnoreGlobs...),
		IgnoreGitignored: b.opts.IgnoreGitignored,
	}
	err = walker.Walk(ctx, b.fs, opts, func(ctx context.Context, parent *PackageInfo, dir string, filenames []string) (*PackageInfo, error) {
		if dir == "" || !slices.Contains(filenames, manifestFile) {
			return parent, nil
		}
		pkg := NewPackage(b.layout, dir)
		doc, err := ReadManifest(ctx, b.fs, pkg.AbsolutePath())
		if err != nil {
			return nil, err
		}
		info := newPackageInfo(pkg.PathFromSrc(), pkg, doc, parent)
		if err := graph.Add(info); err != nil {
			return nil, err
		}
		return info, nil
	})
	if err != nil {
		return nil, err
	}

	graph.sortChildren()
	graph.owners.reset()
	return graph, nil
}

// ReadManifest parses dir/package.json.
func ReadManifest(ctx context.Context, fsys core.FileSystem, dir string) (*pkgjson.Document, error) {
	file := filepath.Join(dir, manifestFile)
	data, err := fsys.ReadFile(ctx, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.ConfigError{Path: file, Reason: "package.json not found", Err: err}
		}
		return nil, &core.ConfigError{Path: file, Reason: "failed to read package.json", Err: err}
	}
	doc, err := pkgjson.Parse(data)
	if err != nil {
		return nil, &core.ConfigError{Path: file, Reason: "failed to parse package.json", Err: err}
	}
	return doc, nil
}

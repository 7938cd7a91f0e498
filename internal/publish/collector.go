package publish

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/imports"
	"github.com/jakzo/things/internal/monorepo"
)

// collector turns the imports of built files into dependency edges and
// decides how cross-package specifiers are rewritten.
type collector struct {
	graph    *monorepo.Graph
	buildDir string

	// byName maps package names to local packages so bare imports of a
	// sibling package become local edges.
	byName map[string]*monorepo.PackageInfo
}

func newCollector(g *monorepo.Graph) *collector {
	buildDir := g.Layout.BuildDir
	if buildDir == "" {
		buildDir = g.Layout.SrcDir
	}
	byName := make(map[string]*monorepo.PackageInfo)
	for _, info := range g.Packages() {
		byName[info.Name()] = info
	}
	return &collector{graph: g, buildDir: buildDir, byName: byName}
}

// replacer returns the ReplaceFunc for file, an absolute path in the build
// directory owned by info.
//
// Builtins are ignored. Relative and absolute specifiers are resolved
// against the file's directory: a file of another package becomes an edge
// and is rewritten to that package's name, a file outside every package
// or inside a private package is an error. Bare specifiers become an edge
// to their package name and are left as written.
func (c *collector) replacer(info *monorepo.PackageInfo, file string) imports.ReplaceFunc {
	dir := filepath.Dir(file)
	return func(_ context.Context, imp imports.Import) (string, bool, error) {
		spec := imp.Path
		switch {
		case imports.IsBuiltin(spec):
			return "", false, nil

		case imports.IsRelative(spec) || imports.IsAbsolute(spec):
			target := filepath.FromSlash(spec)
			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, target)
			}
			owner := c.graph.OwnerOfPath(target, c.buildDir)
			if owner == nil {
				return "", false, &core.GraphError{File: file, Import: imp.Specifier, Reason: fmt.Sprintf("depends on %s which is outside of any package", target)}
			}
			if owner.Key == info.Key {
				return "", false, nil
			}
			if owner.Private() {
				return "", false, &core.GraphError{File: file, Import: imp.Specifier, Reason: fmt.Sprintf("depends on private package %s", owner.Name())}
			}
			info.AddDependency(monorepo.Dependency{Key: owner.Key})
			return owner.Name(), true, nil

		default:
			name := imports.PackageName(spec)
			if name == "" {
				return "", false, nil
			}
			if local, ok := c.byName[name]; ok && !local.Private() {
				if local.Key != info.Key {
					info.AddDependency(monorepo.Dependency{Key: local.Key})
				}
				return "", false, nil
			}
			info.AddDependency(monorepo.Dependency{Name: name})
			return "", false, nil
		}
	}
}

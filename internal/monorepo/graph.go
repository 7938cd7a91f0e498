package monorepo

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Graph stores every PackageInfo of a run keyed by its slash path from the
// source directory ("." for the source directory itself). The root package
// lives outside the map under RootKey.
type Graph struct {
	Layout *Layout
	Root   *PackageInfo

	mu       sync.RWMutex
	packages map[string]*PackageInfo
	owners   ownerCache
}

// NewGraph returns a graph holding only the root package.
func NewGraph(layout *Layout, root *PackageInfo) *Graph {
	return &Graph{
		Layout:   layout,
		Root:     root,
		packages: make(map[string]*PackageInfo),
		owners:   ownerCache{entries: make(map[string]*PackageInfo)},
	}
}

// Add inserts info and links it below its parent.
func (g *Graph) Add(info *PackageInfo) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.packages[info.Key]; exists || info.Key == RootKey {
		return fmt.Errorf("package %q registered twice", info.Key)
	}
	parent := g.Root
	if info.Parent != RootKey {
		var ok bool
		if parent, ok = g.packages[info.Parent]; !ok {
			return fmt.Errorf("parent %q of package %q is unknown", info.Parent, info.Key)
		}
	}
	g.packages[info.Key] = info
	parent.Children = append(parent.Children, info.Key)
	g.owners.reset()
	return nil
}

// sortChildren orders every child list so traversal is deterministic.
func (g *Graph) sortChildren() {
	g.mu.Lock()
	defer g.mu.Unlock()
	sort.Strings(g.Root.Children)
	for _, info := range g.packages {
		sort.Strings(info.Children)
	}
}

// Get returns the package stored at key.
func (g *Graph) Get(key string) (*PackageInfo, bool) {
	if key == RootKey {
		return g.Root, true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	info, ok := g.packages[key]
	return info, ok
}

// Len returns the number of non-root packages.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.packages)
}

// Packages returns every non-root package sorted by key.
func (g *Graph) Packages() []*PackageInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*PackageInfo, 0, len(g.packages))
	for _, info := range g.packages {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Parent returns the parent of info, nil for the root.
func (g *Graph) Parent(info *PackageInfo) *PackageInfo {
	if info.IsRoot() {
		return nil
	}
	parent, _ := g.Get(info.Parent)
	return parent
}

// Children returns the direct children of info.
func (g *Graph) Children(info *PackageInfo) []*PackageInfo {
	out := make([]*PackageInfo, 0, len(info.Children))
	for _, key := range info.Children {
		if child, ok := g.Get(key); ok {
			out = append(out, child)
		}
	}
	return out
}

// Ancestors returns the strict ancestors of info, nearest first, excluding
// the root package.
func (g *Graph) Ancestors(info *PackageInfo) []*PackageInfo {
	var out []*PackageInfo
	for cur := g.Parent(info); cur != nil && !cur.IsRoot(); cur = g.Parent(cur) {
		out = append(out, cur)
	}
	return out
}

// TopDown calls fn for every package, parents before children, starting
// with the root. Returning an error stops the traversal.
func (g *Graph) TopDown(fn func(info *PackageInfo) error) error {
	var visit func(info *PackageInfo) error
	visit = func(info *PackageInfo) error {
		if err := fn(info); err != nil {
			return err
		}
		for _, child := range g.Children(info) {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(g.Root)
}

// OwnerOf returns the package owning relPath, a slash path relative to the
// source directory: the nearest package whose directory equals or contains
// it. Nil means the path belongs to no package.
func (g *Graph) OwnerOf(relPath string) *PackageInfo {
	p := path.Clean(filepath.ToSlash(relPath))
	if p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p) {
		return nil
	}
	if owner, ok := g.owners.get(p); ok {
		return owner
	}

	g.mu.RLock()
	var owner *PackageInfo
	for cur := p; ; cur = path.Dir(cur) {
		if info, ok := g.packages[cur]; ok {
			owner = info
			break
		}
		if cur == "." {
			break
		}
	}
	g.mu.RUnlock()

	g.owners.put(p, owner)
	return owner
}

// OwnerOfPath is OwnerOf for an absolute path, where baseDir is the
// directory mirroring the source directory (the source or build dir).
func (g *Graph) OwnerOfPath(absPath, baseDir string) *PackageInfo {
	rel, err := filepath.Rel(baseDir, absPath)
	if err != nil {
		return nil
	}
	return g.OwnerOf(rel)
}

// ownerCache memoizes OwnerOf lookups. It is cleared whenever the set of
// packages changes.
type ownerCache struct {
	mu      sync.Mutex
	entries map[string]*PackageInfo
}

func (c *ownerCache) get(p string) (*PackageInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[p]
	return info, ok
}

func (c *ownerCache) put(p string, info *PackageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p] = info
}

func (c *ownerCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

package monorepo

import (
	"sort"
	"sync"

	"github.com/jakzo/things/internal/pkgjson"
)

// RootKey identifies the root package in a Graph.
const RootKey = ""

// Dependency is an edge recorded while scanning imports. Exactly one of Key
// (a package of the same monorepo) or Name (an external package) is set.
type Dependency struct {
	Key  string
	Name string
}

// IsLocal reports whether the dependency points at another package of the
// monorepo.
func (d Dependency) IsLocal() bool {
	return d.Name == ""
}

// PackageInfo is a node of the package tree. Parent and children are graph
// keys rather than pointers.
type PackageInfo struct {
	Key     string
	Package *Package

	// Local is the package.json as found on disk.
	Local *pkgjson.Document

	// Manifest holds inherited fields, the resolved name and every local
	// field, in that order.
	Manifest *pkgjson.Document

	Parent   string
	Children []string

	// PublishDirName is the directory below the publish dir.
	PublishDirName string

	mu    sync.Mutex
	deps  map[Dependency]struct{}
	bins  *pkgjson.Map
	found bool
}

func newPackageInfo(key string, pkg *Package, local *pkgjson.Document, parent *PackageInfo) *PackageInfo {
	manifest := pkgjson.New()
	if parent != nil {
		for _, field := range InheritedFields {
			if v := parent.Manifest.Get(field); v.Exists() {
				manifest.SetRaw(field, v.Raw)
			}
		}
		manifest.SetString("name", pkg.Name(local))
	}
	manifest.Merge(local)

	info := &PackageInfo{
		Key:      key,
		Package:  pkg,
		Local:    local,
		Manifest: manifest,
		deps:     make(map[Dependency]struct{}),
		bins:     pkgjson.NewMap(),
	}
	if parent != nil {
		info.Parent = parent.Key
		info.PublishDirName = SanitizeName(info.Name())
	}
	return info
}

// IsRoot reports whether p is the repository's root package.
func (p *PackageInfo) IsRoot() bool {
	return p.Key == RootKey
}

// Name returns the package name.
func (p *PackageInfo) Name() string {
	return p.Package.Name(p.Manifest)
}

// Private reports whether the package opted out of publishing.
func (p *PackageInfo) Private() bool {
	return p.Local.Bool("private")
}

// ExplicitVersion returns the version declared by the package itself.
func (p *PackageInfo) ExplicitVersion() (string, bool) {
	v, ok := p.Local.String("version")
	return v, ok && v != ""
}

// AddDependency records an edge. Safe for concurrent use.
func (p *PackageInfo) AddDependency(d Dependency) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps[d] = struct{}{}
}

// Dependencies returns the recorded edges, local packages first, each
// group sorted.
func (p *PackageInfo) Dependencies() []Dependency {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Dependency, 0, len(p.deps))
	for d := range p.deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsLocal() != out[j].IsLocal() {
			return out[i].IsLocal()
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AddBinary records an auto-discovered executable.
func (p *PackageInfo) AddBinary(name, relPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bins.Set(name, relPath)
}

// Binaries returns the auto-discovered executables.
func (p *PackageInfo) Binaries() *pkgjson.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := pkgjson.NewMap()
	for _, e := range p.bins.Entries() {
		out.Set(e.Key, e.Value)
	}
	return out
}

// MarkFound records that the package exists in the build directory.
func (p *PackageInfo) MarkFound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.found = true
}

// Found reports whether MarkFound was called.
func (p *PackageInfo) Found() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.found
}

package publish

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/monorepo"
	"github.com/jakzo/things/internal/pkgjson"
)

const manifestFile = "package.json"

// emitManifests writes the package.json of every public package, parents
// first. ancestors holds the dependency versions declared by the
// enclosing packages, the nearest declaration winning.
func (r *run) emitManifests(ctx context.Context) error {
	var visit func(info *monorepo.PackageInfo, ancestors map[string]string) error
	visit = func(info *monorepo.PackageInfo, ancestors map[string]string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, declared, err := r.buildManifest(info, ancestors)
		if err != nil {
			return err
		}
		if doc != nil {
			data, err := doc.Marshal()
			if err != nil {
				return fmt.Errorf("failed to encode package.json of %s: %w", info.Name(), err)
			}
			dst := filepath.Join(r.tempDir, info.PublishDirName, manifestFile)
			if err := r.copier.write(ctx, info.Package.AbsolutePath(), dst, data, core.PermFile); err != nil {
				return err
			}
		}

		next := maps.Clone(ancestors)
		maps.Copy(next, declared)
		for _, child := range r.graph.Children(info) {
			if err := visit(child, next); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(r.graph.Root, map[string]string{})
}

// buildManifest returns the document to emit for info (nil for the root
// and private packages) and the dependency versions info declares for its
// descendants.
func (r *run) buildManifest(info *monorepo.PackageInfo, ancestors map[string]string) (*pkgjson.Document, map[string]string, error) {
	manifest := info.Manifest.Clone()
	emitted := !info.IsRoot() && !info.Private()

	fields := make(map[string]*pkgjson.Map, len(pkgjson.DependencyFields))
	declared := map[string]bool{}
	for _, field := range pkgjson.DependencyFields {
		m := manifest.Map(field)
		if m == nil {
			continue
		}
		fields[field] = m
		for _, e := range m.Entries() {
			declared[e.Key] = true
		}
	}

	if emitted {
		deps := fields[pkgjson.Dependencies]
		if deps == nil {
			deps = pkgjson.NewMap()
		}
		for _, dep := range info.Dependencies() {
			name, version, err := r.dependencyVersion(dep)
			if err != nil {
				return nil, nil, err
			}
			if declared[name] {
				continue
			}
			declared[name] = true
			if version == "" {
				deps.SetUnpinned(name)
			} else {
				deps.Set(name, version)
			}
		}
		if deps.Len() > 0 {
			fields[pkgjson.Dependencies] = deps
		}
	}

	// Private packages only pass their pinned versions on.
	for _, field := range pkgjson.DependencyFields {
		m := fields[field]
		if m == nil {
			continue
		}
		resolved := pkgjson.NewMap()
		for _, e := range m.Entries() {
			switch version, found := ancestors[e.Key]; {
			case e.Pinned:
				resolved.Set(e.Key, e.Value)
			case found:
				resolved.Set(e.Key, version)
			case info.Private():
				resolved.SetUnpinned(e.Key)
			default:
				return nil, nil, &core.DependencyVersionError{Package: info.Name(), Dependency: e.Key}
			}
		}
		fields[field] = resolved
		if err := manifest.SetMap(field, resolved); err != nil {
			return nil, nil, err
		}
	}

	// Lower priority fields first so dependencies win.
	versions := map[string]string{}
	for _, field := range []string{pkgjson.OptionalDependencies, pkgjson.PeerDependencies, pkgjson.Dependencies} {
		for _, e := range fields[field].Entries() {
			if e.Pinned {
				versions[e.Key] = e.Value
			}
		}
	}

	if !emitted {
		return nil, versions, nil
	}

	doc, err := r.finishManifest(info, manifest)
	if err != nil {
		return nil, nil, err
	}
	return doc, versions, nil
}

// finishManifest places the resolved version right after the name and
// appends the binary map.
func (r *run) finishManifest(info *monorepo.PackageInfo, manifest *pkgjson.Document) (*pkgjson.Document, error) {
	version, explicit := info.ExplicitVersion()
	if !explicit {
		var ok bool
		if version, ok = r.versions.Version(info.Key); !ok {
			return nil, fmt.Errorf("no version resolved for %s", info.Name())
		}
	}

	doc := pkgjson.New()
	for _, key := range manifest.Keys() {
		if key == "version" && !explicit {
			continue
		}
		doc.SetRaw(key, manifest.Get(key).Raw)
		if key == "name" && !explicit {
			doc.SetString("version", version)
		}
	}

	bins := info.Package.BinaryMap(manifest, info.Binaries())
	if bins.Len() > 0 {
		if err := doc.SetMap("bin", bins); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// dependencyVersion returns the name of dep and, for local packages, the
// version it was resolved to.
func (r *run) dependencyVersion(dep monorepo.Dependency) (string, string, error) {
	if !dep.IsLocal() {
		return dep.Name, "", nil
	}
	target, ok := r.graph.Get(dep.Key)
	if !ok {
		return "", "", fmt.Errorf("dependency on unknown package %q", dep.Key)
	}
	version, ok := r.versions.Version(target.Key)
	if !ok {
		return "", "", fmt.Errorf("no version resolved for dependency %s", target.Name())
	}
	return target.Name(), version, nil
}

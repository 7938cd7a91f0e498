// Package versioning decides which packages to publish and at which
// version, from the commits made since the last release tag.
package versioning

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/git"
	"github.com/jakzo/things/internal/monorepo"
	"github.com/jakzo/things/internal/npm"
	"github.com/jakzo/things/internal/semver"
)

// DefaultVersion is given to packages that were never published.
const DefaultVersion = "0.0.1"

// Resolver computes version plans and resolves them against the registry.
type Resolver struct {
	Git      git.Client
	Registry npm.Registry
	Policy   Policy

	// DefaultVersion overrides the package-level constant when set.
	DefaultVersion string
}

// Result is the outcome of Resolve.
type Result struct {
	// Versions maps every public package key to the version it is
	// emitted with.
	Versions map[string]string

	// ToPublish lists the keys of the packages to publish, sorted.
	ToPublish []string
}

// Version returns the resolved version of the package at key.
func (r *Result) Version(key string) (string, bool) {
	v, ok := r.Versions[key]
	return v, ok
}

// Publishes reports whether the package at key is published.
func (r *Result) Publishes(key string) bool {
	_, found := slices.BinarySearch(r.ToPublish, key)
	return found
}

// Plan reads the commits after the latest release tag and assigns every
// package owning a changed file the highest severity among the commits
// touching it, propagated to its ancestors.
func (r *Resolver) Plan(ctx context.Context, g *monorepo.Graph) (*Plan, error) {
	tags, err := r.Git.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list release tags: %w", err)
	}
	tag := git.LatestReleaseTag(tags)
	commits, err := r.Git.Log(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to read commits since %q: %w", tag, err)
	}
	console.Debug("reading commits", "since", tag, "count", len(commits))

	plan := NewPlan(tag)
	for _, c := range commits {
		sev := Classify(c.Message)
		affected := map[string]*monorepo.PackageInfo{}
		for _, file := range c.Files {
			if owner := g.OwnerOfPath(file, g.Layout.SrcDir); owner != nil {
				affected[owner.Key] = owner
			}
		}
		for _, info := range affected {
			plan.Raise(g, info, sev)
		}
	}
	return plan, nil
}

// ExtendToDependents applies PolicyDependents: every package that reaches
// a planned package through recorded local dependencies gets at least a
// patch bump. It must run after dependencies were collected and is a no-op
// for other policies.
func (r *Resolver) ExtendToDependents(g *monorepo.Graph, plan *Plan) {
	if r.Policy != PolicyDependents {
		return
	}
	dependents := map[string][]*monorepo.PackageInfo{}
	for _, info := range g.Packages() {
		for _, dep := range info.Dependencies() {
			if dep.IsLocal() {
				dependents[dep.Key] = append(dependents[dep.Key], info)
			}
		}
	}

	queue := plan.Keys()
	seen := map[string]bool{}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if seen[key] {
			continue
		}
		seen[key] = true
		for _, dependent := range dependents[key] {
			plan.Raise(g, dependent, SeverityPatch)
			queue = append(queue, dependent.Key)
		}
	}
}

// Resolve assigns a version to every public package. A package with an
// explicit version keeps it and is published when affected. Otherwise
// the registry decides: unpublished packages get the default version and
// are published, affected ones are bumped by their severity and published,
// the rest keep the registry version.
func (r *Resolver) Resolve(ctx context.Context, g *monorepo.Graph, plan *Plan) (*Result, error) {
	defaultVersion := r.DefaultVersion
	if defaultVersion == "" {
		defaultVersion = DefaultVersion
	}

	var (
		mu  sync.Mutex
		res = &Result{Versions: make(map[string]string)}
	)
	record := func(key, version string, publish bool) {
		mu.Lock()
		defer mu.Unlock()
		res.Versions[key] = version
		if publish {
			res.ToPublish = append(res.ToPublish, key)
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, info := range g.Packages() {
		if info.Private() {
			continue
		}
		sev := plan.Severity(info.Key)
		if v, ok := info.ExplicitVersion(); ok {
			record(info.Key, v, sev > SeverityNone)
			continue
		}
		eg.Go(func() error {
			version, publish, err := r.resolveOne(ctx, info.Name(), sev, defaultVersion)
			if err != nil {
				return err
			}
			console.Debug("resolved version", "package", info.Name(), "version", version, "severity", sev, "publish", publish)
			record(info.Key, version, publish)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(res.ToPublish)
	return res, nil
}

func (r *Resolver) resolveOne(ctx context.Context, name string, sev Severity, defaultVersion string) (string, bool, error) {
	current, ok, err := r.Registry.PublishedVersion(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	if !ok {
		console.Warn("package not found in registry, using default version", "package", name, "version", defaultVersion)
		return defaultVersion, true, nil
	}
	if sev == SeverityNone {
		return current, false, nil
	}
	v, err := semver.ParseVersion(current)
	if err != nil {
		return "", false, fmt.Errorf("registry version of %s: %w", name, err)
	}
	next, err := semver.BumpByLabelFunc(v, sev.Label())
	if err != nil {
		return "", false, fmt.Errorf("failed to bump %s: %w", name, err)
	}
	return next.String(), true, nil
}

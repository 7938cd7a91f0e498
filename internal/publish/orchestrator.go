// Package publish assembles the publishable packages of a monorepo into a
// publish directory and hands them to the publisher.
package publish

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/git"
	"github.com/jakzo/things/internal/imports"
	"github.com/jakzo/things/internal/monorepo"
	"github.com/jakzo/things/internal/npm"
	"github.com/jakzo/things/internal/versioning"
)

// State is the phase an Orchestrator is in.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	// StateCopying covers copying build files and versioning, which run
	// concurrently.
	StateCopying
	StateValidating
	StateEmitting
	StateSwapping
	StatePublishing
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "discovering", "copying", "validating", "emitting", "swapping", "publishing", "done", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures an Orchestrator.
type Options struct {
	Layout monorepo.Layout

	// IgnoreGlobs are gitignore-style patterns excluded from both the
	// source and build walks, in addition to monorepo.DefaultIgnoreGlobs.
	// IgnoreGitignored likewise applies to both walks.
	IgnoreGlobs      []string
	IgnoreGitignored bool

	// ImportResolver rewrites specifiers before they are classified.
	ImportResolver imports.Resolver

	Policy         versioning.Policy
	DefaultVersion string

	// FSConcurrency bounds concurrent filesystem operations.
	FSConcurrency int

	// PublishConcurrency bounds concurrent publishes, defaulting to
	// npm.DefaultPublishConcurrency.
	PublishConcurrency int

	// OnState is called on every state change.
	OnState func(State)
}

// Collaborators are the external systems an Orchestrator talks to.
type Collaborators struct {
	Git       git.Client
	Registry  npm.Registry
	Publisher npm.Publisher
}

// Orchestrator drives a run: Prepare builds the publish directory, Publish
// publishes the packages that need it.
type Orchestrator struct {
	fs    core.FileSystem
	opts  Options
	deps  Collaborators
	mu    sync.Mutex
	state State
}

// NewOrchestrator returns an Orchestrator whose filesystem access is gated
// by opts.FSConcurrency.
func NewOrchestrator(fs core.FileSystem, opts Options, deps Collaborators) *Orchestrator {
	return &Orchestrator{
		fs:   core.NewGatedFileSystem(fs, opts.FSConcurrency),
		opts: opts,
		deps: deps,
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	console.Debug("state changed", "state", s)
	if o.opts.OnState != nil {
		o.opts.OnState(s)
	}
}

// PreparedPackage describes one emitted package.
type PreparedPackage struct {
	Key     string
	Name    string
	Version string
	Dir     string
	Publish bool

	// Dependencies lists the names of the packages it depends on through
	// scanned imports.
	Dependencies []string
}

// Prepared is the outcome of Prepare.
type Prepared struct {
	PublishDir string
	Packages   []PreparedPackage

	// Warnings are the recoverable problems met on the way.
	Warnings []error
}

// ToPublish returns the packages flagged for publishing.
func (p *Prepared) ToPublish() []PreparedPackage {
	var out []PreparedPackage
	for _, pkg := range p.Packages {
		if pkg.Publish {
			out = append(out, pkg)
		}
	}
	return out
}

// run is the build context of one Prepare call.
type run struct {
	fs          core.FileSystem
	opts        Options
	graph       *monorepo.Graph
	tempDir     string
	ignoreGlobs []string
	copier      *copier
	collector   *collector
	diags       core.Diagnostics
	versions    *versioning.Result
}

// Run prepares and publishes.
func (o *Orchestrator) Run(ctx context.Context) (*Prepared, error) {
	prepared, err := o.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	return prepared, o.Publish(ctx, prepared)
}

// Prepare discovers packages, copies and rewrites build files, resolves
// versions, writes every package.json and finally swaps the result into
// the publish directory. Nothing in the publish directory changes when it
// fails.
func (o *Orchestrator) Prepare(ctx context.Context) (_ *Prepared, err error) {
	layout := o.opts.Layout
	r := &run{fs: o.fs, opts: o.opts, copier: newCopier(o.fs)}
	defer func() {
		if err == nil {
			return
		}
		o.setState(StateFailed)
		if r.tempDir != "" {
			if rmErr := o.fs.RemoveAll(context.WithoutCancel(ctx), r.tempDir); rmErr != nil {
				console.Warn("failed to remove staging directory", "path", r.tempDir, "error", rmErr)
			}
		}
	}()

	extraGlobs := append(slices.Clone(o.opts.IgnoreGlobs), outputIgnoreGlobs(layout.RootDir, layout.PublishDir)...)
	r.ignoreGlobs = append(slices.Clone(monorepo.DefaultIgnoreGlobs), extraGlobs...)

	o.setState(StateDiscovering)
	builder := monorepo.NewBuilder(o.fs, &layout, monorepo.BuilderOptions{
		IgnoreGlobs:      extraGlobs,
		IgnoreGitignored: o.opts.IgnoreGitignored,
	})
	if r.graph, err = builder.Build(ctx); err != nil {
		return nil, err
	}
	if err := checkPublishDirNames(r.graph); err != nil {
		return nil, err
	}
	console.Debug("discovered packages", "count", r.graph.Len())
	r.collector = newCollector(r.graph)

	if r.tempDir, err = createTempDir(ctx, o.fs, layout.PublishDir); err != nil {
		return nil, err
	}

	o.setState(StateCopying)
	if err := o.copyAndVersion(ctx, r); err != nil {
		return nil, err
	}

	o.setState(StateValidating)
	if err := validateFound(r.graph); err != nil {
		return nil, err
	}

	o.setState(StateEmitting)
	if err := r.emitManifests(ctx); err != nil {
		return nil, err
	}

	o.setState(StateSwapping)
	if err := swapDir(ctx, o.fs, r.tempDir, layout.PublishDir); err != nil {
		return nil, err
	}
	r.tempDir = ""

	return r.report(), nil
}

func (o *Orchestrator) copyAndVersion(ctx context.Context, r *run) error {
	resolver := &versioning.Resolver{
		Git:            o.deps.Git,
		Registry:       o.deps.Registry,
		Policy:         o.opts.Policy,
		DefaultVersion: o.opts.DefaultVersion,
	}
	if resolver.Policy == "" {
		resolver.Policy = versioning.PolicyAncestors
	}

	var plan *versioning.Plan
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return r.copyBuildFiles(gctx)
	})
	eg.Go(func() error {
		var err error
		if plan, err = resolver.Plan(gctx, r.graph); err != nil {
			return err
		}
		// Dependents are only known once every file was scanned.
		if resolver.Policy == versioning.PolicyAncestors {
			r.versions, err = resolver.Resolve(gctx, r.graph, plan)
		}
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	if r.versions == nil {
		resolver.ExtendToDependents(r.graph, plan)
		versions, err := resolver.Resolve(ctx, r.graph, plan)
		if err != nil {
			return err
		}
		r.versions = versions
	}
	return nil
}

// checkPublishDirNames rejects packages that would share a directory.
func checkPublishDirNames(g *monorepo.Graph) error {
	seen := map[string]string{}
	for _, info := range g.Packages() {
		if info.Private() {
			continue
		}
		if other, ok := seen[info.PublishDirName]; ok {
			return &core.ConfigError{
				Path:   info.Package.AbsolutePath(),
				Reason: fmt.Sprintf("packages %s and %s would both be written to %s", other, info.Name(), info.PublishDirName),
			}
		}
		seen[info.PublishDirName] = info.Name()
	}
	return nil
}

// validateFound fails when a public package has no counterpart in the
// build directory.
func validateFound(g *monorepo.Graph) error {
	var missing []string
	for _, info := range g.Packages() {
		if !info.Private() && !info.Found() {
			missing = append(missing, info.Name())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	buildDir := g.Layout.BuildDir
	if buildDir == "" {
		buildDir = g.Layout.SrcDir
	}
	return &core.ConfigError{
		Path: buildDir,
		Reason: fmt.Sprintf("packages not found in the build directory: %s (check that the build directory mirrors the source directory)",
			strings.Join(missing, ", ")),
	}
}

func (r *run) report() *Prepared {
	out := &Prepared{PublishDir: r.graph.Layout.PublishDir, Warnings: r.diags.All()}
	for _, info := range r.graph.Packages() {
		if info.Private() {
			continue
		}
		version, ok := info.ExplicitVersion()
		if !ok {
			version, _ = r.versions.Version(info.Key)
		}
		pkg := PreparedPackage{
			Key:     info.Key,
			Name:    info.Name(),
			Version: version,
			Dir:     info.Package.PublishPath(info.PublishDirName),
			Publish: r.versions.Publishes(info.Key),
		}
		for _, dep := range info.Dependencies() {
			if name, _, err := r.dependencyVersion(dep); err == nil {
				pkg.Dependencies = append(pkg.Dependencies, name)
			}
		}
		out.Packages = append(out.Packages, pkg)
	}
	return out
}

// Publish publishes every flagged package. A failing package does not stop
// the others; all failures are returned together.
func (o *Orchestrator) Publish(ctx context.Context, prepared *Prepared) error {
	o.setState(StatePublishing)
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	limit := o.opts.PublishConcurrency
	if limit <= 0 {
		limit = npm.DefaultPublishConcurrency
	}
	g.SetLimit(limit)
	for _, pkg := range prepared.ToPublish() {
		g.Go(func() error {
			console.Info("publishing", "package", pkg.Name, "version", pkg.Version)
			if err := o.deps.Publisher.Publish(ctx, pkg.Dir); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to publish %s: %w", pkg.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	o.setState(StateDone)
	return errors.Join(errs...)
}

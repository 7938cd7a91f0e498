package versioning

import (
	"maps"
	"slices"
	"sync"

	"github.com/jakzo/things/internal/monorepo"
)

// Plan records the severity of every package touched since the last
// release.
type Plan struct {
	// Tag is the release tag commits were read from, "" for the whole
	// history.
	Tag string

	mu         sync.Mutex
	severities map[string]Severity
}

// NewPlan returns an empty plan.
func NewPlan(tag string) *Plan {
	return &Plan{Tag: tag, severities: make(map[string]Severity)}
}

// Severity returns the planned severity of the package at key.
func (p *Plan) Severity(key string) Severity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.severities[key]
}

// Keys returns the keys of every affected package, sorted.
func (p *Plan) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.severities))
}

// Raise lifts info and each of its strict ancestors below the root to at
// least sev. Siblings are left alone. It reports whether info itself
// changed.
func (p *Plan) Raise(g *monorepo.Graph, info *monorepo.PackageInfo, sev Severity) bool {
	if info == nil || info.IsRoot() || sev == SeverityNone {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := p.raise(info.Key, sev)
	for _, ancestor := range g.Ancestors(info) {
		p.raise(ancestor.Key, sev)
	}
	return changed
}

func (p *Plan) raise(key string, sev Severity) bool {
	if p.severities[key] >= sev {
		return false
	}
	p.severities[key] = sev
	return true
}

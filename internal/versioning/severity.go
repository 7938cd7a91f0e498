package versioning

import (
	"fmt"
	"regexp"

	"github.com/jakzo/things/internal/semver"
)

// Severity is how much a package's version has to move.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityPatch
	SeverityMinor
	SeverityMajor
)

var (
	majorCommit = regexp.MustCompile(`^release(\([^)]+\))?: MAJOR\b`)
	minorCommit = regexp.MustCompile(`^feat(\([^)]+\))?:`)
)

// Classify maps a conventional commit message to a Severity. Anything that
// is neither a major release nor a feature is a patch.
func Classify(message string) Severity {
	switch {
	case majorCommit.MatchString(message):
		return SeverityMajor
	case minorCommit.MatchString(message):
		return SeverityMinor
	default:
		return SeverityPatch
	}
}

// Label is the semver bump label for s.
func (s Severity) Label() string {
	switch s {
	case SeverityPatch:
		return semver.LabelPatch
	case SeverityMinor:
		return semver.LabelMinor
	case SeverityMajor:
		return semver.LabelMajor
	default:
		return "none"
	}
}

func (s Severity) String() string {
	return s.Label()
}

// Policy selects which packages besides the changed ones get bumped.
type Policy string

const (
	// PolicyAncestors bumps every package enclosing a changed package.
	PolicyAncestors Policy = "ancestors"

	// PolicyDependents additionally bumps, by a patch, every package that
	// imports a bumped package.
	PolicyDependents Policy = "dependents"
)

// ParsePolicy validates a policy name. The empty string selects
// PolicyAncestors.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAncestors:
		return PolicyAncestors, nil
	case PolicyDependents:
		return PolicyDependents, nil
	default:
		return "", fmt.Errorf("unknown version policy %q (want %q or %q)", s, PolicyAncestors, PolicyDependents)
	}
}

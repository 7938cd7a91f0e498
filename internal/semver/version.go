// Package semver parses, compares and increments the versions recorded in
// package.json files and returned by the npm registry.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SemVersion is a semantic version (major.minor.patch-preRelease+build).
type SemVersion struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Build      string
}

// Labels accepted by BumpByLabel, ordered by increasing severity.
const (
	LabelPatch = "patch"
	LabelMinor = "minor"
	LabelMajor = "major"
)

// maxVersionLength bounds the input handed to the regex.
const maxVersionLength = 128

var (
	// versionRegex accepts an optional "v" or "=" prefix, as npm does.
	versionRegex = regexp.MustCompile(
		`^[v=]?(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)` +
			`(?:-([0-9A-Za-z\-]+(?:\.[0-9A-Za-z\-]+)*))?` +
			`(?:\+([0-9A-Za-z\-]+(?:\.[0-9A-Za-z\-]+)*))?$`,
	)

	// ErrInvalidVersion is returned (wrapped) for strings that are not
	// semantic versions.
	ErrInvalidVersion = errors.New("invalid version format")

	// BumpByLabelFunc can be overridden in tests to simulate errors.
	BumpByLabelFunc = BumpByLabel
)

// String returns the canonical form without a prefix.
func (v SemVersion) String() string {
	var sb strings.Builder
	sb.Grow(20)
	sb.WriteString(strconv.Itoa(v.Major))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(v.Minor))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(v.Patch))
	if v.PreRelease != "" {
		sb.WriteByte('-')
		sb.WriteString(v.PreRelease)
	}
	if v.Build != "" {
		sb.WriteByte('+')
		sb.WriteString(v.Build)
	}
	return sb.String()
}

// ParseVersion parses s, ignoring surrounding whitespace.
//
// Supported formats:
//   - "1.2.3"
//   - "v1.2.3"
//   - "1.2.3-beta.1"
//   - "1.2.3-rc.1+build.456"
func ParseVersion(s string) (SemVersion, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > maxVersionLength {
		return SemVersion{}, fmt.Errorf("%w: version string exceeds maximum length of %d", ErrInvalidVersion, maxVersionLength)
	}

	matches := versionRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return SemVersion{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return SemVersion{}, fmt.Errorf("%w: %s", ErrInvalidVersion, err.Error())
		}
		parts[i] = n
	}

	return SemVersion{Major: parts[0], Minor: parts[1], Patch: parts[2], PreRelease: matches[4], Build: matches[5]}, nil
}

// Compare returns -1 if v < other, 0 if equal and +1 if v > other.
// A pre-release sorts before its release; build metadata is ignored.
func (v SemVersion) Compare(other SemVersion) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}

	switch {
	case v.PreRelease == "" && other.PreRelease == "":
		return 0
	case v.PreRelease == "":
		return 1
	case other.PreRelease == "":
		return -1
	default:
		return comparePreRelease(v.PreRelease, other.PreRelease)
	}
}

// BumpByLabel increments v the way `npm version <label>` does. A
// pre-release is promoted to its release when that release is already
// the requested increment, so 1.3.0-beta.2 bumped by "minor" is 1.3.0.
//
// Supported labels:
//   - "patch": 1.2.3 -> 1.2.4
//   - "minor": 1.2.3 -> 1.3.0
//   - "major": 1.2.3 -> 2.0.0
func BumpByLabel(v SemVersion, label string) (SemVersion, error) {
	pre := v.PreRelease != ""
	switch label {
	case LabelPatch:
		if pre {
			return SemVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch}, nil
		}
		return SemVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	case LabelMinor:
		if pre && v.Patch == 0 {
			return SemVersion{Major: v.Major, Minor: v.Minor}, nil
		}
		return SemVersion{Major: v.Major, Minor: v.Minor + 1}, nil
	case LabelMajor:
		if pre && v.Minor == 0 && v.Patch == 0 {
			return SemVersion{Major: v.Major}, nil
		}
		return SemVersion{Major: v.Major + 1}, nil
	default:
		return SemVersion{}, fmt.Errorf("invalid bump label: %s", label)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func comparePreRelease(a, b string) int {
	aIDs := strings.Split(a, ".")
	bIDs := strings.Split(b, ".")

	for i := range min(len(aIDs), len(bIDs)) {
		if c := compareIdentifier(aIDs[i], bIDs[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(aIDs), len(bIDs))
}

func compareIdentifier(a, b string) int {
	aNum, aIsNum := parseNumericIdentifier(a)
	bNum, bIsNum := parseNumericIdentifier(b)

	switch {
	case aIsNum && bIsNum:
		return compareInt(aNum, bNum)
	case aIsNum:
		return -1 // numeric < alphanumeric
	case bIsNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// parseNumericIdentifier accepts digits without leading zeros.
func parseNumericIdentifier(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

package core

import "fmt"

// ConfigError reports a fatal misconfiguration: a missing directory, an
// unreadable package.json or a build tree that does not mirror the source
// tree.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: %s", e.Reason)
	if e.Path != "" {
		msg = fmt.Sprintf("config error at %q: %s", e.Path, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// GraphError reports an import that cannot be attributed to a publishable
// package.
type GraphError struct {
	File   string
	Import string
	Reason string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph error: %s imports %q: %s", e.File, e.Import, e.Reason)
}

// DependencyVersionError reports a dependency whose version could not be
// found in the package or any of its ancestors.
type DependencyVersionError struct {
	Package    string
	Dependency string
}

func (e *DependencyVersionError) Error() string {
	return fmt.Sprintf("dependency version for %s (required by %s) not found in any parent package.json", e.Dependency, e.Package)
}

// DynamicSpecifierWarning is recorded when import() or require() is called
// with something other than a static string.
type DynamicSpecifierWarning struct {
	File   string
	Line   int
	Column int
	Call   string
}

func (e *DynamicSpecifierWarning) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s called with a non-literal argument, the dependency cannot be detected", e.File, e.Line, e.Column+1, e.Call)
}

// SourceMapError is recorded when a source map cannot be read, parsed or
// adjusted. The code rewrite it belongs to still succeeds.
type SourceMapError struct {
	File string
	Err  error
}

func (e *SourceMapError) Error() string {
	return fmt.Sprintf("source map for %s not updated: %v", e.File, e.Err)
}

func (e *SourceMapError) Unwrap() error {
	return e.Err
}

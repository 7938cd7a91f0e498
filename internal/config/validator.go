package config

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/semver"
	"github.com/jakzo/things/internal/tui"
	"github.com/jakzo/things/internal/versioning"
)

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	// Category is the validation category (e.g., "Directories", "Policy").
	Category string

	// Passed indicates if the check passed.
	Passed bool

	// Message provides details about the validation result.
	Message string

	// Warning indicates if this is a warning rather than an error.
	Warning bool
}

// Validator checks a Config against the filesystem before a run.
type Validator struct {
	fs          core.FileSystem
	cfg         *Config
	validations []ValidationResult
}

// NewValidator creates a new configuration validator. Relative directories
// of cfg are resolved against cfg.RootDir, which must be absolute.
func NewValidator(fs core.FileSystem, cfg *Config) *Validator {
	return &Validator{fs: fs, cfg: cfg}
}

// Validate runs all validation checks and returns the results.
func (v *Validator) Validate(ctx context.Context) ([]ValidationResult, error) {
	if v.cfg == nil {
		return nil, errors.New("no configuration to validate")
	}
	v.validations = nil

	if v.cfg.Path == "" {
		v.addValidation("Config File", true, "No config file found, using defaults", false)
	} else {
		v.addValidation("Config File", true, fmt.Sprintf("Loaded %s", v.cfg.Path), false)
	}

	if err := v.validateDirectories(ctx); err != nil {
		return nil, err
	}
	v.validatePolicy()
	v.validateDefaultVersion()
	v.validateConcurrency()
	v.validateIgnoreGlobs()
	v.validateAliases()
	if v.cfg.Theme != "" && !tui.IsValidTheme(v.cfg.Theme) {
		v.addValidation("Theme", true, fmt.Sprintf("Unknown theme %q, using the default", v.cfg.Theme), true)
	}

	return v.validations, nil
}

// addValidation adds a validation result to the list.
func (v *Validator) addValidation(category string, passed bool, message string, warning bool) {
	v.validations = append(v.validations, ValidationResult{
		Category: category,
		Passed:   passed,
		Message:  message,
		Warning:  warning,
	})
}

func (v *Validator) abs(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(v.cfg.RootDir, dir)
}

func (v *Validator) validateDirectories(ctx context.Context) error {
	const category = "Directories"
	dirs := []struct{ label, path string }{
		{"Root", v.cfg.RootDir},
		{"Source", v.abs(v.cfg.SourceDir)},
		{"Build", v.abs(v.cfg.BuildDir)},
	}
	for _, d := range dirs {
		info, err := v.fs.Stat(ctx, d.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			v.addValidation(category, false, fmt.Sprintf("%s directory does not exist: %s", d.label, d.path), false)
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v.addValidation(category, false, fmt.Sprintf("Cannot access %s directory %s: %v", strings.ToLower(d.label), d.path, err), false)
		case !info.IsDir():
			v.addValidation(category, false, fmt.Sprintf("%s directory is not a directory: %s", d.label, d.path), false)
		}
	}

	root := v.cfg.RootDir
	src := v.abs(v.cfg.SourceDir)
	build := v.abs(v.cfg.BuildDir)
	out := v.abs(v.cfg.OutputDir)
	switch {
	case !isInside(root, src):
		v.addValidation(category, false, fmt.Sprintf("Source directory %s is outside the root directory", src), false)
	case out == root:
		v.addValidation(category, false, "Output directory cannot be the root directory", false)
	case isInside(out, src) || isInside(out, build):
		// The output directory is replaced on every run.
		v.addValidation(category, false, fmt.Sprintf("Output directory %s contains the source or build directory", out), false)
	default:
		v.addValidation(category, true, fmt.Sprintf("Publishing %s to %s", build, out), false)
	}
	return nil
}

func (v *Validator) validatePolicy() {
	if _, err := versioning.ParsePolicy(v.cfg.Policy); err != nil {
		v.addValidation("Policy", false, err.Error(), false)
		return
	}
	v.addValidation("Policy", true, fmt.Sprintf("Version policy %q", cmp.Or(v.cfg.Policy, string(versioning.PolicyAncestors))), false)
}

func (v *Validator) validateDefaultVersion() {
	if v.cfg.DefaultVersion == "" {
		return
	}
	if _, err := semver.ParseVersion(v.cfg.DefaultVersion); err != nil {
		v.addValidation("Default Version", false, err.Error(), false)
		return
	}
	v.addValidation("Default Version", true, fmt.Sprintf("New packages start at %s", v.cfg.DefaultVersion), false)
}

func (v *Validator) validateConcurrency() {
	if v.cfg.Concurrency < 0 || v.cfg.PublishConcurrency < 0 {
		v.addValidation("Concurrency", false, "concurrency limits cannot be negative", false)
	}
}

func (v *Validator) validateIgnoreGlobs() {
	for i, glob := range v.cfg.IgnoreGlobs {
		switch strings.TrimSpace(glob) {
		case "":
			v.addValidation("Ignore Globs", true, fmt.Sprintf("Ignore glob %d is empty and has no effect", i+1), true)
		case "*", "**", "/":
			v.addValidation("Ignore Globs", true, fmt.Sprintf("Ignore glob %d: '%s' ignores every file", i+1, glob), true)
		}
	}
}

func (v *Validator) validateAliases() {
	for prefix, dir := range v.cfg.Aliases {
		if prefix == "" {
			v.addValidation("Aliases", false, "alias prefix cannot be empty", false)
		}
		if filepath.IsAbs(dir) {
			v.addValidation("Aliases", false, fmt.Sprintf("alias %q must map to a directory relative to the build directory", prefix), false)
		}
	}
}

// isInside reports whether path is dir or below it.
func isInside(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// HasErrors returns true if any validation failed.
func HasErrors(results []ValidationResult) bool {
	return ErrorCount(results) > 0
}

// ErrorCount returns the number of failed validations.
func ErrorCount(results []ValidationResult) int {
	count := 0
	for _, r := range results {
		if !r.Passed && !r.Warning {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warnings.
func WarningCount(results []ValidationResult) int {
	count := 0
	for _, r := range results {
		if r.Warning {
			count++
		}
	}
	return count
}

// Package config loads the optional .splitter.yaml or .splitter.toml file
// holding the defaults of the prepare and run commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/jakzo/things/internal/imports"
)

// Config file names, in lookup order.
const (
	FileYAML = ".splitter.yaml"
	FileTOML = ".splitter.toml"
)

// EnvPath overrides the config file location.
const EnvPath = "SPLITTER_CONFIG"

// Defaults mirroring the command line flags.
const (
	DefaultSourceDir = "./src/"
	DefaultBuildDir  = "./build/"
	DefaultOutputDir = "./dist/"
)

// DefaultIgnoreGlobs skip test and fixture directories such as __tests__.
var DefaultIgnoreGlobs = []string{"__*__"}

// Config is the main configuration structure.
type Config struct {
	RootDir   string `yaml:"root-dir,omitempty" toml:"root-dir,omitempty"`
	SourceDir string `yaml:"source-dir,omitempty" toml:"source-dir,omitempty"`
	BuildDir  string `yaml:"build-dir,omitempty" toml:"build-dir,omitempty"`
	OutputDir string `yaml:"output-dir,omitempty" toml:"output-dir,omitempty"`

	IgnoreGlobs []string `yaml:"ignore-globs,omitempty" toml:"ignore-globs,omitempty"`

	// IgnoreGitignored applies .gitignore files to package discovery and
	// to the build copy alike. Off by default since build output is
	// usually gitignored.
	IgnoreGitignored bool `yaml:"ignore-gitignored,omitempty" toml:"ignore-gitignored,omitempty"`

	// Prefix is prepended to generated package names.
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`

	// Policy selects which packages are bumped along with a changed one.
	Policy         string `yaml:"policy,omitempty" toml:"policy,omitempty"`
	DefaultVersion string `yaml:"default-version,omitempty" toml:"default-version,omitempty"`

	Concurrency        int `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`
	PublishConcurrency int `yaml:"publish-concurrency,omitempty" toml:"publish-concurrency,omitempty"`

	// Aliases maps an import prefix to a directory relative to the build
	// directory, such as "~/" to "./".
	Aliases map[string]string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`

	// Theme names the prompt theme.
	Theme string `yaml:"theme,omitempty" toml:"theme,omitempty"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.IgnoreGlobs == nil {
		c.IgnoreGlobs = append([]string(nil), DefaultIgnoreGlobs...)
	}
}

// ImportResolver returns a resolver turning aliased specifiers into
// absolute paths below buildDir, or nil when no alias is configured. The
// longest matching prefix wins.
func (c *Config) ImportResolver(buildDir string) imports.Resolver {
	if len(c.Aliases) == 0 {
		return nil
	}
	aliases := c.Aliases
	return func(specifier string) string {
		best := ""
		for prefix := range aliases {
			if strings.HasPrefix(specifier, prefix) && len(prefix) > len(best) {
				best = prefix
			}
		}
		if best == "" {
			return specifier
		}
		target := filepath.Join(buildDir, filepath.FromSlash(aliases[best]), filepath.FromSlash(specifier[len(best):]))
		return filepath.ToSlash(target)
	}
}

// LoadConfigFn is a variable so tests can stub config loading.
var LoadConfigFn = loadConfig

// loadConfig reads the config file at path. An empty path falls back to
// $SPLITTER_CONFIG and then to .splitter.yaml or .splitter.toml in the
// working directory. A missing default file yields Default().
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if envPath := os.Getenv(EnvPath); envPath != "" {
			cleanPath := filepath.Clean(envPath)
			// Reject relative paths with traversal (use absolute paths instead)
			if strings.Contains(cleanPath, "..") {
				return nil, fmt.Errorf("invalid %s: path traversal not allowed, use absolute path instead", EnvPath)
			}
			path, explicit = cleanPath, true
		}
	}

	candidates := []string{FileYAML, FileTOML}
	if explicit {
		candidates = []string{path}
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", candidate, err)
		}
		cfg, err := Parse(candidate, data)
		if err != nil {
			return nil, err
		}
		cfg.Path = candidate
		return cfg, nil
	}
	return Default(), nil
}

// Parse decodes data as TOML when name ends in .toml and as YAML
// otherwise. Unknown keys are rejected.
func Parse(name string, data []byte) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %q: %w", name, err)
		}
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data), yaml.Strict())
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid config file %q: %w", name, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

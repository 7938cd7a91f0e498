package monorepo

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jakzo/things/internal/pkgjson"
)

// InheritedFields are copied from a parent's manifest into its children
// unless the child declares them itself.
var InheritedFields = []string{
	"bugs",
	"license",
	"licenses",
	"author",
	"contributors",
	"maintainers",
	"repository",
	"os",
	"cpu",
	"browser",
	"engines",
	"type",
	"publishConfig",
	"resolutions",
}

// Layout holds the absolute directories of a run.
type Layout struct {
	RootDir    string
	SrcDir     string
	BuildDir   string
	PublishDir string

	// NamePrefix is prepended to generated package names.
	NamePrefix string
}

// Package locates one package directory inside a Layout.
type Package struct {
	// RelPath is the slash-separated path from the root directory.
	RelPath string

	layout *Layout
}

// NewPackage returns the package at relPath below the layout's root.
func NewPackage(layout *Layout, relPath string) *Package {
	return &Package{RelPath: relPath, layout: layout}
}

// AbsolutePath returns the package directory.
func (p *Package) AbsolutePath() string {
	return filepath.Join(p.layout.RootDir, filepath.FromSlash(p.RelPath))
}

// PathFromSrc returns the slash path of the package relative to the source
// directory, "." for the source directory itself.
func (p *Package) PathFromSrc() string {
	rel, err := filepath.Rel(p.layout.SrcDir, p.AbsolutePath())
	if err != nil {
		return p.RelPath
	}
	return filepath.ToSlash(rel)
}

// BuildPath returns the directory mirroring the package inside the build
// directory.
func (p *Package) BuildPath() string {
	buildDir := p.layout.BuildDir
	if buildDir == "" {
		buildDir = p.layout.SrcDir
	}
	return filepath.Join(buildDir, filepath.FromSlash(p.PathFromSrc()))
}

// PublishPath returns where the package is emitted.
func (p *Package) PublishPath(dirName string) string {
	return filepath.Join(p.layout.PublishDir, dirName)
}

// GeneratedName is the name used when the package.json has none.
func (p *Package) GeneratedName() string {
	rel := p.PathFromSrc()
	if rel == "." {
		rel = filepath.Base(p.layout.SrcDir)
	}
	return p.layout.NamePrefix + rel
}

// Name returns the declared name or the generated one.
func (p *Package) Name(doc *pkgjson.Document) string {
	if name, ok := doc.String("name"); ok && name != "" {
		return name
	}
	return p.GeneratedName()
}

// BinaryMap combines auto-discovered binaries with the declared bin field.
// A string bin field maps the package name to that path. Declared entries
// win over generated ones.
func (p *Package) BinaryMap(doc *pkgjson.Document, generated *pkgjson.Map) *pkgjson.Map {
	out := pkgjson.NewMap()
	for _, e := range generated.Entries() {
		out.Set(e.Key, e.Value)
	}
	bin := doc.Get("bin")
	switch {
	case bin.IsObject():
		for _, e := range doc.Map("bin").Entries() {
			if e.Pinned {
				out.Set(e.Key, e.Value)
			}
		}
	case bin.Exists() && bin.String() != "":
		out.Set(p.Name(doc), bin.String())
	}
	return out
}

// SanitizeName turns a package name into a single directory name:
// "@scope/name" becomes "scope__name".
func SanitizeName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "@"), "/", "__")
}

// BinaryName derives a command name from a file in a bin directory.
// "my-tool.ts" and "myTool.js" both become "my_tool".
func BinaryName(filename string) string {
	base := path.Base(filename)
	base = strings.TrimSuffix(base, path.Ext(base))

	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(base)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && len(cur) > 0 &&
			(unicode.IsLower(cur[len(cur)-1]) || unicode.IsDigit(cur[len(cur)-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return strings.Join(words, "_")
}

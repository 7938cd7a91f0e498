package monorepo

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/pkgjson"
	"github.com/jakzo/things/internal/testutils"
)

func newLayout(root string) *Layout {
	return &Layout{
		RootDir:    root,
		SrcDir:     filepath.Join(root, "src"),
		BuildDir:   filepath.Join(root, "build"),
		PublishDir: filepath.Join(root, "dist"),
	}
}

func buildFixture(t *testing.T) *Graph {
	t.Helper()
	root := t.TempDir()
	testutils.WriteTree(t, root, map[string]string{
		"package.json":               `{"name":"monorepo","license":"MIT","author":"root","dependencies":{"x":"1"}}`,
		"src/a/package.json":         `{"author":"a-team","version":"1.0.0"}`,
		"src/a/index.ts":             ``,
		"src/a/b/package.json":       `{"name":"@scope/b"}`,
		"src/a/b/lib/util.ts":        ``,
		"src/c/plain.ts":             ``,
		"src/c/d/package.json":       `{"private":true}`,
		"src/__tests__/package.json": `{}`,
	})
	g, err := NewBuilder(core.NewOSFileSystem(), newLayout(root), BuilderOptions{IgnoreGlobs: []string{"__*__"}}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestBuild_Tree(t *testing.T) {
	g := buildFixture(t)

	if g.Len() != 3 {
		t.Fatalf("expected 3 packages, got %d", g.Len())
	}
	if got := strings.Join(g.Root.Children, ","); got != "a,c/d" {
		t.Errorf("root children = %q", got)
	}
	a, _ := g.Get("a")
	if got := strings.Join(a.Children, ","); got != "a/b" {
		t.Errorf("a children = %q", got)
	}
	b, _ := g.Get("a/b")
	if g.Parent(b) != a || g.Parent(a) != g.Root {
		t.Error("unexpected parent links")
	}
	if anc := g.Ancestors(b); len(anc) != 1 || anc[0] != a {
		t.Errorf("Ancestors(b) = %v", anc)
	}
	if _, ok := g.Get("__tests__"); ok {
		t.Error("ignored package was discovered")
	}
}

func TestBuild_Manifests(t *testing.T) {
	g := buildFixture(t)
	a, _ := g.Get("a")
	b, _ := g.Get("a/b")
	d, _ := g.Get("c/d")

	if a.Name() != "a" || b.Name() != "@scope/b" || d.Name() != "c/d" {
		t.Errorf("names = %q, %q, %q", a.Name(), b.Name(), d.Name())
	}
	if got := strings.Join(a.Manifest.Keys(), ","); got != "license,author,name,version" {
		t.Errorf("a manifest keys = %q", got)
	}
	if v, _ := a.Manifest.String("author"); v != "a-team" {
		t.Errorf("a author = %q", v)
	}
	if v, _ := b.Manifest.String("author"); v != "a-team" {
		t.Errorf("b must inherit from its nearest parent, author = %q", v)
	}
	if b.Manifest.Has("dependencies") || b.Manifest.Has("version") {
		t.Error("non-inheritable fields leaked into child manifest")
	}
	if b.PublishDirName != "scope__b" || d.PublishDirName != "c__d" {
		t.Errorf("publish dir names = %q, %q", b.PublishDirName, d.PublishDirName)
	}
	if !d.Private() || a.Private() {
		t.Error("unexpected private flags")
	}
	if v, ok := a.ExplicitVersion(); !ok || v != "1.0.0" {
		t.Errorf("ExplicitVersion() = %q, %v", v, ok)
	}
	if _, ok := b.ExplicitVersion(); ok {
		t.Error("b has no explicit version")
	}
}

func TestBuild_TopDownVisitsParentsFirst(t *testing.T) {
	g := buildFixture(t)
	var order []string
	_ = g.TopDown(func(info *PackageInfo) error {
		order = append(order, info.Key)
		return nil
	})
	if got := strings.Join(order, "|"); got != "|a|a/b|c/d" {
		t.Errorf("TopDown order = %q", got)
	}
}

func TestBuild_InvalidManifest(t *testing.T) {
	root := t.TempDir()
	testutils.WriteTree(t, root, map[string]string{
		"package.json":       `{}`,
		"src/a/package.json": `{"name":`,
	})
	_, err := NewBuilder(core.NewOSFileSystem(), newLayout(root), BuilderOptions{}).Build(context.Background())
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) || !strings.HasSuffix(cfgErr.Path, filepath.Join("a", "package.json")) {
		t.Fatalf("expected ConfigError for a/package.json, got %v", err)
	}
}

func TestBuild_MissingRootManifest(t *testing.T) {
	root := t.TempDir()
	testutils.WriteTree(t, root, map[string]string{"src/a/package.json": `{}`})
	_, err := NewBuilder(core.NewOSFileSystem(), newLayout(root), BuilderOptions{}).Build(context.Background())
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestOwnerOf_NearestAncestor(t *testing.T) {
	g := buildFixture(t)
	keys := []string{"a", "a/b", "c/d"}

	// The owner of a path is the longest package key equal to or above it.
	expected := func(p string) string {
		best := ""
		for _, k := range keys {
			if (p == k || strings.HasPrefix(p, k+"/")) && len(k) > len(best) {
				best = k
			}
		}
		return best
	}

	paths := []string{
		"a", "a/index.ts", "a/b", "a/b/lib/util.ts", "a/bb/x.ts", "a/b/../x.ts",
		"c", "c/plain.ts", "c/d/e/f.ts", "c/dd", "other.ts", ".", "../outside.ts",
	}
	for _, p := range paths {
		owner := g.OwnerOf(p)
		want := expected(path.Clean(p))
		if strings.HasPrefix(p, "..") {
			want = ""
		}
		got := ""
		if owner != nil {
			got = owner.Key
		}
		if got != want {
			t.Errorf("OwnerOf(%q) = %q, want %q", p, got, want)
		}
		// A second lookup is served from the cache and must agree.
		if again := g.OwnerOf(p); again != owner {
			t.Errorf("cached OwnerOf(%q) differs", p)
		}
	}
}

func TestOwnerOfPath(t *testing.T) {
	g := buildFixture(t)
	build := g.Layout.BuildDir
	if owner := g.OwnerOfPath(filepath.Join(build, "a", "b", "index.js"), build); owner == nil || owner.Key != "a/b" {
		t.Errorf("OwnerOfPath() = %v", owner)
	}
	if owner := g.OwnerOfPath(filepath.Join(g.Layout.RootDir, "x.js"), build); owner != nil {
		t.Errorf("expected no owner outside the build dir, got %q", owner.Key)
	}
}

func TestPackage_Paths(t *testing.T) {
	layout := &Layout{RootDir: "/r", SrcDir: "/r/src", BuildDir: "/r/build", PublishDir: "/r/dist", NamePrefix: "@org/"}
	p := NewPackage(layout, "src/a/b")

	if got := p.AbsolutePath(); got != filepath.FromSlash("/r/src/a/b") {
		t.Errorf("AbsolutePath() = %q", got)
	}
	if got := p.PathFromSrc(); got != "a/b" {
		t.Errorf("PathFromSrc() = %q", got)
	}
	if got := p.BuildPath(); got != filepath.FromSlash("/r/build/a/b") {
		t.Errorf("BuildPath() = %q", got)
	}
	if got := p.GeneratedName(); got != "@org/a/b" {
		t.Errorf("GeneratedName() = %q", got)
	}
	if got := p.PublishPath("org__a__b"); got != filepath.FromSlash("/r/dist/org__a__b") {
		t.Errorf("PublishPath() = %q", got)
	}

	layout.BuildDir = ""
	if got := p.BuildPath(); got != filepath.FromSlash("/r/src/a/b") {
		t.Errorf("BuildPath() without build dir = %q", got)
	}
}

func TestPackage_BinaryMap(t *testing.T) {
	p := NewPackage(&Layout{RootDir: "/r", SrcDir: "/r/src"}, "src/tool")
	generated := pkgjson.NewMap()
	generated.Set("cli", "bin/cli.js")
	generated.Set("other", "bin/other.js")

	tests := []struct {
		name string
		doc  string
		want map[string]string
	}{
		{
			name: "generated only",
			doc:  `{}`,
			want: map[string]string{"cli": "bin/cli.js", "other": "bin/other.js"},
		},
		{
			name: "string bin uses package name",
			doc:  `{"name":"tool-x","bin":"main.js"}`,
			want: map[string]string{"cli": "bin/cli.js", "other": "bin/other.js", "tool-x": "main.js"},
		},
		{
			name: "explicit entries win",
			doc:  `{"bin":{"cli":"custom.js"}}`,
			want: map[string]string{"cli": "custom.js", "other": "bin/other.js"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := pkgjson.Parse([]byte(tt.doc))
			if err != nil {
				t.Fatal(err)
			}
			got := p.BinaryMap(doc, generated)
			if got.Len() != len(tt.want) {
				t.Fatalf("BinaryMap() has %d entries, want %d", got.Len(), len(tt.want))
			}
			for k, v := range tt.want {
				if e, ok := got.Get(k); !ok || e.Value != v {
					t.Errorf("bin[%q] = %q, want %q", k, e.Value, v)
				}
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"@scope/name": "scope__name",
		"plain":       "plain",
		"a/b/c":       "a__b__c",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBinaryName(t *testing.T) {
	tests := map[string]string{
		"cli.ts":        "cli",
		"my-tool.js":    "my_tool",
		"myTool.mjs":    "my_tool",
		"HTTPServer.ts": "http_server",
		"run_all.jsx":   "run_all",
	}
	for in, want := range tests {
		if got := BinaryName(in); got != want {
			t.Errorf("BinaryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDependencies_Sorted(t *testing.T) {
	info := newPackageInfo("a", NewPackage(&Layout{}, "a"), pkgjson.New(), nil)
	info.AddDependency(Dependency{Name: "zlib-x"})
	info.AddDependency(Dependency{Key: "b"})
	info.AddDependency(Dependency{Name: "axios"})
	info.AddDependency(Dependency{Key: "b"})

	deps := info.Dependencies()
	if len(deps) != 3 || deps[0].Key != "b" || deps[1].Name != "axios" || deps[2].Name != "zlib-x" {
		t.Errorf("Dependencies() = %+v", deps)
	}
}

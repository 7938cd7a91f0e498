package imports

import (
	"errors"
	"strings"
	"testing"

	"github.com/jakzo/things/internal/core"
)

func specifiers(imps []Import) []string {
	out := make([]string, len(imps))
	for i, imp := range imps {
		out[i] = imp.Specifier
	}
	return out
}

func TestScan_Forms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"side effect import", `import "./polyfill";`, []string{"./polyfill"}},
		{"default import", `import a from './a'`, []string{"./a"}},
		{"named and namespace", "import x, { y as z } from \"b\";\nimport * as ns from 'c';", []string{"b", "c"}},
		{"type import", `import type { T } from "./types";`, []string{"./types"}},
		{"export all", `export * from "./all"; export * as ns from "./ns";`, []string{"./all", "./ns"}},
		{"export named from", `export { a, b as default } from "./named";`, []string{"./named"}},
		{"export type from", `export type { T } from "./t";`, []string{"./t"}},
		{"local export has no source", `export { a }; export const b = 1;`, nil},
		{"require", `const a = require("lodash/pick");`, []string{"lodash/pick"}},
		{"dynamic import", `const m = await import('./lazy');`, []string{"./lazy"}},
		{"template without substitutions", "require(`./tpl`)", []string{"./tpl"}},
		{"import equals require", `import fs = require("fs");`, []string{"fs"}},
		{"import equals namespace", `import A = NS.A;`, nil},
		{"import meta", `console.log(import.meta.url);`, nil},
		{"member require", `module.require("x"); obj?.require("y");`, nil},
		{"require with extra arguments", `require("a", opts)`, []string{"a"}},
		{"import attributes", `import data from "./d.json" with { type: "json" };`, []string{"./d.json"}},
		{
			name: "comments and strings are not code",
			src:  "// require('no1')\n/* import x from 'no2' */\nconst s = \"require('no3')\";\nrequire('yes');",
			want: []string{"yes"},
		},
		{
			name: "regex literal",
			src:  "const re = /require\\('no'\\)/g; const d = a / b; require('yes')",
			want: []string{"yes"},
		},
		{
			name: "template substitution",
			src:  "const s = `${require('inner')} and ${ {a: 1}.a }`; require('after')",
			want: []string{"inner", "after"},
		},
		{
			name: "jsx text with apostrophe",
			src:  "import React from 'react';\nconst x = <p>Don't stop</p>;\nimport y from './y';",
			want: []string{"react", "./y"},
		},
		{
			name: "escaped specifier",
			src:  `require('it\'s\x2Fok')`,
			want: []string{"it's/ok"},
		},
		{"hashbang", "#!/usr/bin/env node\nrequire('cli')", []string{"cli"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imps, warnings := Scan("f.ts", []byte(tt.src), nil)
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
			if got := strings.Join(specifiers(imps), "|"); got != strings.Join(tt.want, "|") {
				t.Errorf("Scan() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScan_DynamicSpecifier(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"variable require", "const p = './x';\nconst m = require(p);"},
		{"template with substitution", "import(`./locale/${lang}`)"},
		{"concatenation", "require('./a' + b)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imps, warnings := Scan("f.js", []byte(tt.src), nil)
			if len(imps) != 0 {
				t.Errorf("expected no imports, got %v", specifiers(imps))
			}
			if len(warnings) != 1 {
				t.Fatalf("expected 1 warning, got %d", len(warnings))
			}
			var w *core.DynamicSpecifierWarning
			if !errors.As(warnings[0], &w) || w.File != "f.js" {
				t.Errorf("unexpected warning %v", warnings[0])
			}
		})
	}

	_, warnings := Scan("f.js", []byte("const x = 1;\n  const m = require(p);"), nil)
	var w *core.DynamicSpecifierWarning
	if !errors.As(warnings[0], &w) || w.Line != 2 || w.Column != 12 {
		t.Errorf("warning position = %+v", w)
	}
}

func TestScan_Locations(t *testing.T) {
	src := "// ✓ check\nconst a = require(\"../b\"); import c from '𝒳/x';"
	imps, _ := Scan("f.js", []byte(src), nil)
	if len(imps) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imps))
	}

	first := imps[0]
	if src[first.Start:first.End] != `"../b"` || first.Quote != '"' {
		t.Errorf("first span = %q quote %q", src[first.Start:first.End], first.Quote)
	}
	if first.Loc.Start != (Position{Line: 2, Column: 18}) || first.Loc.End != (Position{Line: 2, Column: 24}) {
		t.Errorf("first loc = %+v", first.Loc)
	}

	second := imps[1]
	if second.Quote != '\'' || second.Specifier != "𝒳/x" {
		t.Errorf("second = %+v", second)
	}
	// The astral character counts as two UTF-16 code units.
	if got := second.Loc.End.Column - second.Loc.Start.Column; got != 6 {
		t.Errorf("second width = %d, want 6", got)
	}
}

func TestScan_Resolver(t *testing.T) {
	resolve := func(s string) string {
		if rest, ok := strings.CutPrefix(s, "~/"); ok {
			return "../../" + rest
		}
		return s
	}
	imps, _ := Scan("f.ts", []byte(`import a from "~/a"; import b from "b";`), resolve)
	if imps[0].Path != "../../a" || imps[0].Specifier != "~/a" || imps[1].Path != "b" {
		t.Errorf("resolved = %+v", imps)
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := map[string]bool{
		"a.ts": true, "a.tsx": true, "a.js": true, "a.jsx": true, "a.mjs": true, "a.cjs": true,
		"addon.node": true, "a.d.ts": false, "a.json": false, "a.js.map": false, "README.md": false,
	}
	for name, want := range tests {
		if got := IsSourceFile(name); got != want {
			t.Errorf("IsSourceFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"lodash":            "lodash",
		"lodash/pick":       "lodash",
		"@scope/pkg":        "@scope/pkg",
		"@scope/pkg/deep/x": "@scope/pkg",
		"@scope":            "@scope",
	}
	for in, want := range tests {
		if got := PackageName(in); got != want {
			t.Errorf("PackageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuiltinsAndKinds(t *testing.T) {
	for _, s := range []string{"fs", "node:test", "fs/promises", "path"} {
		if !IsBuiltin(s) {
			t.Errorf("IsBuiltin(%q) = false", s)
		}
	}
	if IsBuiltin("lodash") || IsBuiltin("./fs") {
		t.Error("unexpected builtin")
	}
	if !IsRelative("./a") || !IsRelative("..") || IsRelative(".hidden") || IsRelative("a") {
		t.Error("IsRelative misclassified")
	}
	if !IsAbsolute("/abs") || IsAbsolute("rel") {
		t.Error("IsAbsolute misclassified")
	}
}

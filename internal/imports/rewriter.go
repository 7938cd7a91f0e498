package imports

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/jakzo/things/internal/core"
	"github.com/jakzo/things/internal/sourcemap"
)

// ReplaceFunc decides the new specifier for an import. Returning ok=false
// leaves the import untouched. The function may record side effects such
// as dependency edges; an error aborts the rewrite.
type ReplaceFunc func(ctx context.Context, imp Import) (specifier string, ok bool, err error)

// MapFile is an updated source map to be written next to the rewritten
// file.
type MapFile struct {
	// RelPath is relative to the directory of the rewritten file.
	RelPath string
	Data    []byte
}

// Rewrite is the outcome of rewriting one file.
type Rewrite struct {
	Code []byte

	// Map is set when the file referenced a separate map file.
	Map *MapFile

	// Warnings holds SourceMapErrors. The code rewrite is valid anyway.
	Warnings []error
}

// RewriteFile replaces the specifiers of imports (sorted by start offset)
// in src. It returns nil when nothing was replaced, in which case the file
// should be copied unchanged. When the file has a source map its mappings
// are moved to match the new code.
func RewriteFile(ctx context.Context, fsys core.FileSystem, filePath string, src []byte, imports []Import, replace ReplaceFunc) (*Rewrite, error) {
	var (
		buf  bytes.Buffer
		last int
		reps []sourcemap.Replacement
	)
	for _, imp := range imports {
		spec, ok, err := replace(ctx, imp)
		if err != nil {
			return nil, err
		}
		if !ok || spec == imp.Specifier {
			continue
		}
		if imp.Start < last {
			return nil, fmt.Errorf("overlapping imports in %s at offset %d", filePath, imp.Start)
		}
		literal := Quote(spec, imp.Quote)
		buf.Write(src[last:imp.Start])
		buf.WriteString(literal)
		last = imp.End
		reps = append(reps, sourcemap.Replacement{
			Start:     sourcemap.Position{Line: imp.Loc.Start.Line - 1, Column: imp.Loc.Start.Column},
			End:       sourcemap.Position{Line: imp.Loc.End.Line - 1, Column: imp.Loc.End.Column},
			NewLength: utf16Len(literal),
		})
	}
	if len(reps) == 0 {
		return nil, nil
	}
	buf.Write(src[last:])

	out := &Rewrite{Code: buf.Bytes()}
	if err := out.updateSourceMap(ctx, fsys, filePath, reps); err != nil {
		out.Warnings = append(out.Warnings, &core.SourceMapError{File: filePath, Err: err})
	}
	return out, nil
}

func (r *Rewrite) updateSourceMap(ctx context.Context, fsys core.FileSystem, filePath string, reps []sourcemap.Replacement) error {
	ref, err := sourcemap.Find(ctx, fsys, filePath, r.Code)
	if err != nil || ref == nil {
		return err
	}
	m, err := sourcemap.Parse(ref.Data)
	if err != nil {
		return err
	}
	m.Mappings = sourcemap.Adjust(m.Mappings, reps)
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	if ref.Inline {
		code := make([]byte, 0, len(r.Code))
		code = append(code, r.Code[:ref.URLStart]...)
		code = append(code, sourcemap.DataURI(data)...)
		code = append(code, r.Code[ref.URLEnd:]...)
		r.Code = code
		return nil
	}

	rel, err := filepath.Rel(filepath.Dir(filePath), ref.Path)
	if err != nil {
		return err
	}
	r.Map = &MapFile{RelPath: rel, Data: data}
	return nil
}

package sourcemap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jakzo/things/internal/core"
)

var urlComment = regexp.MustCompile(`(?m)(?://|/\*)[#@][ \t]*sourceMappingURL=(\S+?)[ \t]*(?:\*/)?[ \t]*$`)

// Reference locates the source map of a generated file.
type Reference struct {
	// Inline maps are embedded as a data URI in the code.
	Inline bool

	// Path is the map file of a non-inline reference.
	Path string

	// URLStart and URLEnd delimit the URL inside the code, both -1 when
	// the map was found next to the file without a comment.
	URLStart int
	URLEnd   int

	Data []byte
}

// Find returns the source map of the generated file at filePath whose
// content is code, or nil when it has none. The last sourceMappingURL
// comment wins; without one a sibling "<file>.map" is used.
func Find(ctx context.Context, fsys core.FileSystem, filePath string, code []byte) (*Reference, error) {
	matches := urlComment.FindAllSubmatchIndex(code, -1)
	if len(matches) == 0 {
		sibling := filePath + ".map"
		data, err := fsys.ReadFile(ctx, sibling)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		return &Reference{Path: sibling, URLStart: -1, URLEnd: -1, Data: data}, nil
	}

	last := matches[len(matches)-1]
	ref := &Reference{URLStart: last[2], URLEnd: last[3]}
	raw := string(code[ref.URLStart:ref.URLEnd])

	if strings.HasPrefix(raw, "data:") {
		data, err := decodeDataURI(raw)
		if err != nil {
			return nil, err
		}
		ref.Inline = true
		ref.Data = data
		return ref, nil
	}

	target, err := url.PathUnescape(strings.TrimPrefix(raw, "file://"))
	if err != nil {
		return nil, fmt.Errorf("invalid sourceMappingURL %q: %w", raw, err)
	}
	if strings.Contains(target, "://") {
		return nil, fmt.Errorf("remote sourceMappingURL %q is not supported", raw)
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(filePath), filepath.FromSlash(target))
	}
	data, err := fsys.ReadFile(ctx, target)
	if err != nil {
		return nil, err
	}
	ref.Path = target
	ref.Data = data
	return ref, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("malformed base64 data URI: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URI: %w", err)
	}
	return []byte(data), nil
}

// DataURI encodes a source map as an inline data URI.
func DataURI(data []byte) string {
	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data)
}

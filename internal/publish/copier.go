package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jakzo/things/internal/core"
)

// FilePermissionError indicates insufficient permissions for file operations.
type FilePermissionError struct {
	Src string
	Dst string
	Op  string // operation: "open", "create", "copy"
	Err error
}

func (e *FilePermissionError) Error() string {
	return fmt.Sprintf("permission denied: cannot %s file from %q to %q: %v", e.Op, e.Src, e.Dst, e.Err)
}

func (e *FilePermissionError) Unwrap() error {
	return e.Err
}

// DiskFullError indicates no space left on device.
type DiskFullError struct {
	Path string
	Err  error
}

func (e *DiskFullError) Error() string {
	return fmt.Sprintf("no space left on device at %q: %v", e.Path, e.Err)
}

func (e *DiskFullError) Unwrap() error {
	return e.Err
}

// copier writes files into the temporary publish tree. It remembers the
// source maps it produced so that a plain copy of the original map never
// replaces an adjusted one.
type copier struct {
	fs core.FileSystem

	mu       sync.Mutex
	adjusted map[string]struct{}
}

func newCopier(fs core.FileSystem) *copier {
	return &copier{fs: fs, adjusted: make(map[string]struct{})}
}

// CopyFile copies src to dst keeping its permission bits.
func (c *copier) CopyFile(ctx context.Context, src, dst string) error {
	info, err := c.fs.Stat(ctx, src)
	if err != nil {
		return classifyFileCopyError(err, src, dst, "open")
	}
	data, err := c.fs.ReadFile(ctx, src)
	if err != nil {
		return classifyFileCopyError(err, src, dst, "open")
	}
	return c.write(ctx, src, dst, data, info.Mode().Perm())
}

// CopyMap copies a source map unless an adjusted version was written to
// dst already.
func (c *copier) CopyMap(ctx context.Context, src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.adjusted[filepath.Clean(dst)]; done {
		return nil
	}
	return c.CopyFile(ctx, src, dst)
}

// WriteFile stores generated content for src at dst using the permission
// bits of src.
func (c *copier) WriteFile(ctx context.Context, src, dst string, data []byte) error {
	perm := core.PermFile
	if info, err := c.fs.Stat(ctx, src); err == nil {
		perm = info.Mode().Perm()
	}
	return c.write(ctx, src, dst, data, perm)
}

// WriteMap stores an adjusted source map.
func (c *copier) WriteMap(ctx context.Context, src, dst string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adjusted[filepath.Clean(dst)] = struct{}{}
	return c.write(ctx, src, dst, data, core.PermFile)
}

func (c *copier) write(ctx context.Context, src, dst string, data []byte, perm core.FileMode) error {
	if err := c.fs.MkdirAll(ctx, filepath.Dir(dst), core.PermDir); err != nil {
		return classifyFileCopyError(err, src, dst, "create")
	}
	if err := c.fs.WriteFile(ctx, dst, data, perm); err != nil {
		return classifyFileCopyError(err, src, dst, "copy")
	}
	return nil
}

// classifyFileCopyError detects permission and disk-full failures and
// returns structured errors for them.
func classifyFileCopyError(err error, src, dst, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrPermission) {
		return &FilePermissionError{
			Src: src,
			Dst: dst,
			Op:  operation,
			Err: err,
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("source path not found: %q: %w", src, err)
	}

	// ENOSPC and friends
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "no space left on device") || strings.Contains(errMsg, "disk full") {
		return &DiskFullError{
			Path: dst,
			Err:  err,
		}
	}

	return fmt.Errorf("failed to %s from %q to %q: %w", operation, src, dst, err)
}

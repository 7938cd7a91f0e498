package core

import (
	"context"
	"io/fs"

	"golang.org/x/sync/semaphore"
)

// GatedFileSystem funnels every operation of the wrapped FileSystem through
// a weighted semaphore. Waiters are served in FIFO order and give up when
// their context is cancelled.
type GatedFileSystem struct {
	fs   FileSystem
	gate *semaphore.Weighted
}

// NewGatedFileSystem wraps fs so that at most limit operations run at once.
// A non-positive limit falls back to DefaultFSConcurrency.
func NewGatedFileSystem(fs FileSystem, limit int) *GatedFileSystem {
	if limit <= 0 {
		limit = DefaultFSConcurrency
	}
	return &GatedFileSystem{fs: fs, gate: semaphore.NewWeighted(int64(limit))}
}

var _ FileSystem = (*GatedFileSystem)(nil)

func (g *GatedFileSystem) acquire(ctx context.Context) (func(), error) {
	if err := g.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.gate.Release(1) }, nil
}

func (g *GatedFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return g.fs.ReadFile(ctx, path)
}

func (g *GatedFileSystem) WriteFile(ctx context.Context, path string, data []byte, perm FileMode) error {
	release, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return g.fs.WriteFile(ctx, path, data, perm)
}

func (g *GatedFileSystem) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return g.fs.Stat(ctx, path)
}

func (g *GatedFileSystem) ReadDir(ctx context.Context, path string) ([]fs.DirEntry, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return g.fs.ReadDir(ctx, path)
}

func (g *GatedFileSystem) MkdirAll(ctx context.Context, path string, perm FileMode) error {
	release, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return g.fs.MkdirAll(ctx, path, perm)
}

func (g *GatedFileSystem) MkdirTemp(ctx context.Context, dir, pattern string) (string, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return g.fs.MkdirTemp(ctx, dir, pattern)
}

func (g *GatedFileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	release, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return g.fs.Rename(ctx, oldPath, newPath)
}

func (g *GatedFileSystem) RemoveAll(ctx context.Context, path string) error {
	release, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return g.fs.RemoveAll(ctx, path)
}

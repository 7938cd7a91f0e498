package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/jakzo/things/internal/core"
)

func TestClassifyFileCopyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, got error)
	}{
		{"nil", nil, func(t *testing.T, got error) {
			if got != nil {
				t.Errorf("got %v, want nil", got)
			}
		}},
		{"permission", &fs.PathError{Op: "open", Path: "/a", Err: fs.ErrPermission}, func(t *testing.T, got error) {
			var permErr *FilePermissionError
			if !errors.As(got, &permErr) || permErr.Op != "copy" {
				t.Errorf("got %v, want FilePermissionError", got)
			}
		}},
		{"missing", fs.ErrNotExist, func(t *testing.T, got error) {
			if !errors.Is(got, fs.ErrNotExist) || !strings.Contains(got.Error(), "source path not found") {
				t.Errorf("got %v", got)
			}
		}},
		{"disk full", syscall.ENOSPC, func(t *testing.T, got error) {
			var diskErr *DiskFullError
			if !errors.As(got, &diskErr) || diskErr.Path != "/dst" {
				t.Errorf("got %v, want DiskFullError", got)
			}
		}},
		{"other", errors.New("boom"), func(t *testing.T, got error) {
			if got == nil || !strings.Contains(got.Error(), "failed to copy") {
				t.Errorf("got %v", got)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, classifyFileCopyError(tt.err, "/src", "/dst", "copy"))
		})
	}
}

func TestCopier_AdjustedMapWins(t *testing.T) {
	ctx := context.Background()
	mfs := core.NewMockFileSystem()
	mfs.SetFile("/src/index.js.map", []byte("original"))
	c := newCopier(mfs)

	if err := c.WriteMap(ctx, "/src/index.js", "/out/index.js.map", []byte("adjusted")); err != nil {
		t.Fatal(err)
	}
	if err := c.CopyMap(ctx, "/src/index.js.map", "/out/index.js.map"); err != nil {
		t.Fatal(err)
	}
	if got := string(mfs.Files()["/out/index.js.map"]); got != "adjusted" {
		t.Errorf("map = %q, want adjusted", got)
	}

	if err := c.CopyMap(ctx, "/src/index.js.map", "/out/other.js.map"); err != nil {
		t.Fatal(err)
	}
	if got := string(mfs.Files()["/out/other.js.map"]); got != "original" {
		t.Errorf("map = %q, want original", got)
	}
}

func TestCopier_MissingSource(t *testing.T) {
	c := newCopier(core.NewMockFileSystem())
	err := c.CopyFile(context.Background(), "/nope", "/out/nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("CopyFile() error = %v, want ErrNotExist", err)
	}
}

func TestSwapDir(t *testing.T) {
	ctx := context.Background()
	publishDir := filepath.FromSlash("/repo/dist")

	t.Run("fresh", func(t *testing.T) {
		mfs := core.NewMockFileSystem()
		tmp, err := createTempDir(ctx, mfs, publishDir)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(filepath.Base(tmp), ".dist-") {
			t.Errorf("temp dir = %s", tmp)
		}
		mfs.SetFile(filepath.Join(tmp, "a", "package.json"), []byte("{}"))
		if err := swapDir(ctx, mfs, tmp, publishDir); err != nil {
			t.Fatal(err)
		}
		if _, ok := mfs.Files()[filepath.Join(publishDir, "a", "package.json")]; !ok {
			t.Error("package.json not moved into place")
		}
	})

	t.Run("replaces", func(t *testing.T) {
		mfs := core.NewMockFileSystem()
		mfs.SetFile(filepath.Join(publishDir, "old.txt"), []byte("old"))
		tmp, _ := createTempDir(ctx, mfs, publishDir)
		mfs.SetFile(filepath.Join(tmp, "new.txt"), []byte("new"))
		if err := swapDir(ctx, mfs, tmp, publishDir); err != nil {
			t.Fatal(err)
		}
		files := mfs.Files()
		if len(files) != 1 || string(files[filepath.Join(publishDir, "new.txt")]) != "new" {
			t.Errorf("files = %v", files)
		}
	})

	t.Run("restores on failure", func(t *testing.T) {
		mfs := core.NewMockFileSystem()
		mfs.SetFile(filepath.Join(publishDir, "old.txt"), []byte("old"))
		tmp, _ := createTempDir(ctx, mfs, publishDir)
		mfs.SetFile(filepath.Join(tmp, "new.txt"), []byte("new"))
		mfs.SetError(tmp, fmt.Errorf("device busy"))

		if err := swapDir(ctx, mfs, tmp, publishDir); err == nil {
			t.Fatal("swapDir() succeeded")
		}
		if got := string(mfs.Files()[filepath.Join(publishDir, "old.txt")]); got != "old" {
			t.Errorf("old publish dir not restored: %v", mfs.Files())
		}
	})
}

func TestOutputIgnoreGlobs(t *testing.T) {
	root := filepath.FromSlash("/repo")
	tests := []struct {
		publishDir string
		want       string
	}{
		{"/repo/dist", "/dist,/.dist-*"},
		{"/repo/out/pkgs", "/out/pkgs,/out/.pkgs-*"},
		{"/elsewhere", ""},
		{"/repo", ""},
	}
	for _, tt := range tests {
		got := strings.Join(outputIgnoreGlobs(root, filepath.FromSlash(tt.publishDir)), ",")
		if got != tt.want {
			t.Errorf("outputIgnoreGlobs(%s) = %q, want %q", tt.publishDir, got, tt.want)
		}
	}
}

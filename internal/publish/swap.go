package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jakzo/things/internal/console"
	"github.com/jakzo/things/internal/core"
)

// tempPattern names the staging directory created next to the publish
// directory, so the final rename never crosses filesystems.
func tempPattern(publishDir string) string {
	return "." + filepath.Base(publishDir) + "-*"
}

// createTempDir creates the staging directory beside publishDir.
func createTempDir(ctx context.Context, fsys core.FileSystem, publishDir string) (string, error) {
	parent := filepath.Dir(publishDir)
	if err := fsys.MkdirAll(ctx, parent, core.PermDir); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", parent, err)
	}
	dir, err := fsys.MkdirTemp(ctx, parent, tempPattern(publishDir))
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory in %s: %w", parent, err)
	}
	return dir, nil
}

// swapDir replaces publishDir with tempDir. An existing publish directory
// is moved aside first and put back if the replacement fails.
func swapDir(ctx context.Context, fsys core.FileSystem, tempDir, publishDir string) error {
	_, err := fsys.Stat(ctx, publishDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := fsys.Rename(ctx, tempDir, publishDir); err != nil {
			return fmt.Errorf("failed to move %s to %s: %w", tempDir, publishDir, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect %s: %w", publishDir, err)
	}

	backup := tempDir + ".previous"
	if err := fsys.Rename(ctx, publishDir, backup); err != nil {
		return fmt.Errorf("failed to move old %s aside: %w", publishDir, err)
	}
	if err := fsys.Rename(ctx, tempDir, publishDir); err != nil {
		if restoreErr := fsys.Rename(context.WithoutCancel(ctx), backup, publishDir); restoreErr != nil {
			return errors.Join(
				fmt.Errorf("failed to move %s to %s: %w", tempDir, publishDir, err),
				fmt.Errorf("failed to restore %s from %s: %w", publishDir, backup, restoreErr),
			)
		}
		return fmt.Errorf("failed to move %s to %s: %w", tempDir, publishDir, err)
	}
	if err := fsys.RemoveAll(ctx, backup); err != nil {
		console.Warn("failed to remove previous publish directory", "path", backup, "error", err)
	}
	return nil
}

// relInside returns the slash path of dir relative to root, failing when
// dir is outside root.
func relInside(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &core.ConfigError{Path: dir, Reason: "directory must be inside the root directory"}
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// outputIgnoreGlobs keeps the publish and staging directories out of
// every walk when they live inside the root directory.
func outputIgnoreGlobs(root, publishDir string) []string {
	rel, err := relInside(root, publishDir)
	if err != nil || rel == "" {
		return nil
	}
	parent := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
	staging := tempPattern(publishDir)
	if parent != "." {
		staging = parent + "/" + staging
	}
	return []string{"/" + rel, "/" + staging}
}

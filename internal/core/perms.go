package core

import "io/fs"

// FileMode aliases fs.FileMode so callers do not need to import io/fs.
type FileMode = fs.FileMode

const (
	// PermOwnerRW is used for files only the current user should touch.
	PermOwnerRW FileMode = 0o600

	// PermFile is the default mode for emitted package files.
	PermFile FileMode = 0o644

	// PermDir is the default mode for created directories.
	PermDir FileMode = 0o755
)

// DefaultFSConcurrency bounds concurrent filesystem operations when no
// explicit limit is configured.
const DefaultFSConcurrency = 8

package core

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem for tests. Directories are
// implied by the files they contain and can also be created explicitly.
type MockFileSystem struct {
	mu      sync.RWMutex
	files   map[string][]byte
	dirs    map[string]struct{}
	errs    map[string]error
	tempSeq int
}

// NewMockFileSystem returns an empty in-memory FileSystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
		errs:  make(map[string]error),
	}
}

var _ FileSystem = (*MockFileSystem)(nil)

// SetFile stores data at path.
func (m *MockFileSystem) SetFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = data
}

// SetError makes every operation on path fail with err.
func (m *MockFileSystem) SetError(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[filepath.Clean(path)] = err
}

// Files returns a copy of all stored files keyed by path.
func (m *MockFileSystem) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		out[k] = v
	}
	return out
}

func (m *MockFileSystem) injected(op, path string) error {
	if err, ok := m.errs[path]; ok {
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

// isDirLocked reports whether path was created as a directory or is the
// parent of any stored entry.
func (m *MockFileSystem) isDirLocked(path string) bool {
	if _, ok := m.dirs[path]; ok {
		return true
	}
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for p := range m.dirs {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *MockFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.injected("open", path); err != nil {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MockFileSystem) WriteFile(ctx context.Context, path string, data []byte, _ FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("open", path); err != nil {
		return err
	}
	if m.isDirLocked(path) {
		return &fs.PathError{Op: "open", Path: path, Err: fmt.Errorf("is a directory")}
	}
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *MockFileSystem) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.injected("stat", path); err != nil {
		return nil, err
	}
	if data, ok := m.files[path]; ok {
		return mockFileInfo{name: filepath.Base(path), size: int64(len(data))}, nil
	}
	if m.isDirLocked(path) {
		return mockFileInfo{name: filepath.Base(path), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFileSystem) ReadDir(ctx context.Context, path string) ([]fs.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.injected("readdir", path); err != nil {
		return nil, err
	}
	if !m.isDirLocked(path) {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}

	prefix := path + string(filepath.Separator)
	children := make(map[string]fs.FileInfo)
	add := func(p string, isFile bool, size int) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		rest := p[len(prefix):]
		name, _, nested := strings.Cut(rest, string(filepath.Separator))
		if nested || !isFile {
			children[name] = mockFileInfo{name: name, dir: true}
			return
		}
		children[name] = mockFileInfo{name: name, size: int64(size)}
	}
	for p, data := range m.files {
		add(p, true, len(data))
	}
	for p := range m.dirs {
		add(p, false, 0)
	}

	entries := make([]fs.DirEntry, 0, len(children))
	for _, info := range children {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MockFileSystem) MkdirAll(ctx context.Context, path string, _ FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("mkdir", path); err != nil {
		return err
	}
	if _, ok := m.files[path]; ok {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	m.dirs[path] = struct{}{}
	return nil
}

func (m *MockFileSystem) MkdirTemp(ctx context.Context, dir, pattern string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSeq++
	seq := fmt.Sprintf("%d", m.tempSeq)
	name := pattern + seq
	if strings.Contains(pattern, "*") {
		name = strings.Replace(pattern, "*", seq, 1)
	}
	path := filepath.Join(dir, name)
	if err := m.injected("mkdirtemp", filepath.Clean(dir)); err != nil {
		return "", err
	}
	m.dirs[path] = struct{}{}
	return path, nil
}

func (m *MockFileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("rename", oldPath); err != nil {
		return err
	}
	if err := m.injected("rename", newPath); err != nil {
		return err
	}
	if data, ok := m.files[oldPath]; ok {
		delete(m.files, oldPath)
		m.files[newPath] = data
		return nil
	}
	if !m.isDirLocked(oldPath) {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if m.isDirLocked(newPath) {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrExist}
	}

	oldPrefix := oldPath + string(filepath.Separator)
	for p, data := range m.files {
		if strings.HasPrefix(p, oldPrefix) {
			delete(m.files, p)
			m.files[filepath.Join(newPath, p[len(oldPrefix):])] = data
		}
	}
	for p := range m.dirs {
		switch {
		case p == oldPath:
			delete(m.dirs, p)
			m.dirs[newPath] = struct{}{}
		case strings.HasPrefix(p, oldPrefix):
			delete(m.dirs, p)
			m.dirs[filepath.Join(newPath, p[len(oldPrefix):])] = struct{}{}
		}
	}
	return nil
}

func (m *MockFileSystem) RemoveAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("removeall", path); err != nil {
		return err
	}
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	for p := range m.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.dirs, p)
		}
	}
	return nil
}

type mockFileInfo struct {
	name string
	size int64
	dir  bool
}

func (fi mockFileInfo) Name() string { return fi.name }
func (fi mockFileInfo) Size() int64  { return fi.size }
func (fi mockFileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | PermDir
	}
	return PermFile
}
func (fi mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi mockFileInfo) IsDir() bool        { return fi.dir }
func (fi mockFileInfo) Sys() any           { return nil }
